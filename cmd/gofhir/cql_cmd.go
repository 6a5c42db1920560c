package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/fhirlang/gofhir/pkg/cql"
)

func newCQLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cql",
		Short: "Compile and inspect CQL libraries",
	}
	cmd.AddCommand(newCQLCompileCmd())
	cmd.AddCommand(newCQLValidateCmd())
	cmd.AddCommand(newCQLInfoCmd())
	cmd.AddCommand(newCQLReplCmd())
	return cmd
}

func readCQLSource(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := readAllStdin()
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func newCQLCompileCmd() *cobra.Command {
	var outPath string
	var compact, debug, strict, signatures bool
	cmd := &cobra.Command{
		Use:   "compile FILE|-",
		Short: "Compile a CQL library to ELM JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := readCQLSource(args[0])
			if err != nil {
				return err
			}
			opts := cql.DefaultOptions()
			opts.StrictMode = strict
			opts.EnableAnnotations = debug
			opts.EnableLocators = debug
			if signatures {
				opts.SignatureLevel = cql.SignatureAll
			}

			out, res, err := cql.CompileToJSON(source, opts, !compact)
			for _, d := range res.Diagnostics {
				fmt.Fprintln(os.Stderr, d.Error())
			}
			if err != nil {
				return err
			}
			if res.HasErrors() {
				return fmt.Errorf("compile failed: %d diagnostic(s)", len(res.Diagnostics))
			}
			if outPath == "" || outPath == "-" {
				fmt.Println(string(out))
				return nil
			}
			return os.WriteFile(outPath, out, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write ELM JSON to this path instead of stdout")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit compact JSON instead of indented")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable annotations and source locators in the ELM output")
	cmd.Flags().BoolVar(&strict, "strict", false, "strict mode: set every Disable* option (rejects method-style invocations)")
	cmd.Flags().BoolVar(&signatures, "signatures", false, "set the signature level to All (no overload signatures are emitted at any level)")
	return cmd
}

func newCQLValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate FILE|-",
		Short: "Check a CQL library for diagnostics without emitting ELM",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := readCQLSource(args[0])
			if err != nil {
				return err
			}
			diags := cql.Validate(source, cql.DefaultOptions())
			errs, warns := 0, 0
			for _, d := range diags {
				if verbose || d.Severity != "warning" {
					fmt.Println(d.Error())
				}
				glog.V(1).Infof("diagnostic: %s", d.Error())
				switch d.Severity {
				case "error":
					errs++
				case "warning":
					warns++
				}
			}
			if errs == 0 {
				fmt.Printf("✓ valid (%d warning(s))\n", warns)
				return nil
			}
			fmt.Printf("✗ %d error(s), %d warning(s)\n", errs, warns)
			return fmt.Errorf("validation failed")
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "also print warning diagnostics")
	return cmd
}

func newCQLInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info FILE|-",
		Short: "Summarize a CQL library's public surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := readCQLSource(args[0])
			if err != nil {
				return err
			}
			summary, diags := cql.Info(source)
			if len(diags) > 0 {
				for _, d := range diags {
					fmt.Fprintln(os.Stderr, d.Error())
				}
				return fmt.Errorf("parse failed: %d diagnostic(s)", len(diags))
			}
			fmt.Print(summary.String())
			return nil
		},
	}
	return cmd
}

func newCQLReplCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively compile CQL snippets to ELM",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCQLRepl(debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable annotations and locators in compiled output")
	return cmd
}

const cqlReplHelp = `:help     show this message
:debug    toggle annotation/locator output
:compact  toggle compact JSON output
:quit     exit the REPL
Enter a CQL library or definition; a blank line ends a multi-line input and compiles it.`

func runCQLRepl(debug bool) error {
	compact := false
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("gofhir cql repl. Type :help for commands.")
	var buf strings.Builder
	for {
		if buf.Len() == 0 {
			fmt.Print("cql> ")
		} else {
			fmt.Print("...  ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 {
			switch trimmed {
			case ":quit":
				return nil
			case ":help":
				fmt.Println(cqlReplHelp)
				continue
			case ":debug":
				debug = !debug
				fmt.Printf("debug=%v\n", debug)
				continue
			case ":compact":
				compact = !compact
				fmt.Printf("compact=%v\n", compact)
				continue
			case "":
				continue
			}
		}

		if trimmed == "" {
			source := buf.String()
			buf.Reset()
			if strings.TrimSpace(source) == "" {
				continue
			}
			opts := cql.DefaultOptions()
			opts.EnableAnnotations = debug
			opts.EnableLocators = debug
			out, res, err := cql.CompileToJSON(source, opts, !compact)
			for _, d := range res.Diagnostics {
				fmt.Fprintln(os.Stderr, d.Error())
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if !res.HasErrors() {
				fmt.Println(string(out))
			}
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return scanner.Err()
}
