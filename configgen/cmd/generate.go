// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dywisor/kernelconfig/choices"
	"github.com/dywisor/kernelconfig/kconfig"
	"github.com/dywisor/kernelconfig/lang"
)

// loadBaseConfig reads the configuration basis. Symbols unknown to
// the (possibly empty) table are adopted from the files with their
// detected types.
func loadBaseConfig(basis []string) (*kconfig.Config, error) {
	if len(basis) == 0 {
		return nil, fmt.Errorf("at least one --config basis file is required")
	}
	cfg := kconfig.NewConfig(kconfig.NewSymbolTable())
	if err := cfg.ReadConfigFiles(false, basis...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [directive files...]",
		Short: "Resolve directives against a base configuration and write the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBaseConfig(viper.GetStringSlice("config"))
			if err != nil {
				return err
			}

			configChoices := choices.NewConfigChoices(cfg)
			interp := lang.NewInterpreter(configChoices, viper.GetStringSlice("include_path")...)

			if len(args) > 0 {
				if err := interp.ProcessFiles(args...); err != nil {
					return err
				}
			}
			if directive := viper.GetString("directive"); directive != "" {
				if err := interp.ProcessString(directive); err != nil {
					return err
				}
			}

			if err := configChoices.Commit(); err != nil {
				return err
			}

			if viper.GetBool("dump_symbols") {
				for _, sym := range cfg.Symbols().Symbols() {
					fmt.Print(pretty.Sprintf("%v\n", sym))
				}
			}

			outfile := viper.GetString("outfile")
			if outfile == "" {
				for _, line := range cfg.GenerateLines() {
					fmt.Println(line)
				}
				return nil
			}
			return cfg.WriteConfigFile(outfile)
		},
	}

	cmd.Flags().StringSlice("config", nil, "Base .config files, loaded in order (the configuration basis).")
	cmd.Flags().StringSlice("include_path", nil, "Search paths for include directives.")
	cmd.Flags().String("directive", "", "Directive string to run after the directive files.")
	cmd.Flags().String("outfile", "", "Output .config path; stdout when empty.")
	cmd.Flags().Bool("dump_symbols", false, "Dump the symbol table after resolution.")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search PREFIX",
		Short: "List known symbols matching a name prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBaseConfig(viper.GetStringSlice("config"))
			if err != nil {
				return err
			}
			name, err := cfg.OptionToSymbolName(args[0], true)
			if err != nil {
				return err
			}
			for _, sym := range cfg.Symbols().SearchPrefix(name) {
				value, ok := cfg.SymbolValue(sym)
				if !ok {
					fmt.Printf("%s (%s)\n", cfg.SymbolNameToOption(sym.Name), sym.Type)
					continue
				}
				fmt.Printf("%s (%s) = %s\n", cfg.SymbolNameToOption(sym.Name),
					sym.Type, kconfig.FormatValueToken(value))
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("config", nil, "Base .config files, loaded in order (the configuration basis).")
	return cmd
}
