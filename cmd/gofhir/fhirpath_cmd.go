package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/fhirlang/gofhir/pkg/fhirpath"
	"github.com/fhirlang/gofhir/pkg/fhirpath/ast"
	"github.com/fhirlang/gofhir/pkg/fhirpath/parser"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

func newFHIRPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fhirpath",
		Short: "Parse and evaluate FHIRPath expressions",
	}
	cmd.AddCommand(newFHIRPathParseCmd())
	cmd.AddCommand(newFHIRPathEvalCmd())
	cmd.AddCommand(newFHIRPathReplCmd())
	cmd.AddCommand(newFHIRPathTestCmd())
	return cmd
}

func newFHIRPathParseCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "parse <expr>",
		Short: "Parse a FHIRPath expression and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tree, diags := parser.Parse(args[0])
			if len(diags) > 0 {
				for _, d := range diags {
					fmt.Fprintln(os.Stderr, d.Error())
				}
				return fmt.Errorf("parse failed: %d diagnostic(s)", len(diags))
			}
			switch format {
			case "json":
				out, err := json.MarshalIndent(map[string]string{
					"expression": args[0],
					"tree":       ast.Dump(tree),
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			case "debug":
				fmt.Print(ast.Dump(tree))
			default:
				fmt.Println(ast.Sprint(tree))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format: pretty, json, debug")
	return cmd
}

func newFHIRPathEvalCmd() *cobra.Command {
	var dataFile, format string
	cmd := &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate a FHIRPath expression against a FHIR resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			resource, err := readResourceFile(dataFile)
			if err != nil {
				return err
			}
			glog.V(1).Infof("evaluating %q against %d bytes of resource", args[0], len(resource))
			result, err := fhirpath.Evaluate(resource, args[0])
			if err != nil {
				return fmt.Errorf("evaluation error: %w", err)
			}
			return printCollection(result, format)
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "FHIR resource JSON file (- reads stdin; omitted for empty context)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

func readResourceFile(path string) ([]byte, error) {
	if path == "" {
		return []byte("{}"), nil
	}
	if path == "-" {
		return readAllStdin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func readAllStdin() ([]byte, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func newFHIRPathReplCmd() *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively evaluate FHIRPath expressions",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runFHIRPathRepl(dataFile)
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "FHIR resource JSON file to seed as the active context")
	return cmd
}

const fhirpathReplHelp = `.help          show this message
.load FILE     load a FHIR resource JSON file as the active context
.data          print the currently loaded resource
.quit          exit the REPL
Any other input is evaluated as a FHIRPath expression against the loaded resource.`

func runFHIRPathRepl(dataFile string) error {
	resource := []byte("{}")
	if dataFile != "" {
		data, err := readResourceFile(dataFile)
		if err != nil {
			return err
		}
		resource = data
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("gofhir fhirpath repl. Type .help for commands.")
	for {
		fmt.Print("fhirpath> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ".quit":
			return nil
		case line == ".help":
			fmt.Println(fhirpathReplHelp)
		case line == ".data":
			fmt.Println(string(resource))
		case strings.HasPrefix(line, ".load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, ".load "))
			data, err := readResourceFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			resource = data
			fmt.Printf("loaded %s\n", path)
		default:
			result, err := fhirpath.Evaluate(resource, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			_ = printCollection(result, "text")
		}
	}
	return scanner.Err()
}

// testCase is one entry of a `fhirpath test --file CASES.json` suite.
type testCase struct {
	Expression  string      `json:"expression"`
	Expected    interface{} `json:"expected"`
	ShouldError bool        `json:"shouldError"`
}

func newFHIRPathTestCmd() *cobra.Command {
	var file, dataFile string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run a FHIRPath test-case file against a resource",
		RunE: func(_ *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			resource, err := readResourceFile(dataFile)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var cases []testCase
			if err := json.Unmarshal(raw, &cases); err != nil {
				return fmt.Errorf("failed to parse test cases: %w", err)
			}
			return runFHIRPathTests(resource, cases)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON test-case file")
	cmd.Flags().StringVar(&dataFile, "data", "", "FHIR resource JSON file to evaluate against")
	return cmd
}

func runFHIRPathTests(resource []byte, cases []testCase) error {
	failures := 0
	for i, tc := range cases {
		result, err := fhirpath.Evaluate(resource, tc.Expression)
		if tc.ShouldError {
			if err == nil {
				fmt.Printf("[%d] FAIL %q: expected an error, got none\n", i, tc.Expression)
				failures++
			} else {
				fmt.Printf("[%d] ok %q (error: %v)\n", i, tc.Expression, err)
			}
			continue
		}
		if err != nil {
			fmt.Printf("[%d] FAIL %q: %v\n", i, tc.Expression, err)
			failures++
			continue
		}
		actual, expErr := json.Marshal(projectCollection(result))
		expected, err := json.Marshal(tc.Expected)
		if err != nil {
			return fmt.Errorf("failed to marshal expected value for case %d: %w", i, err)
		}
		if expErr != nil {
			return fmt.Errorf("failed to marshal actual value for case %d: %w", i, expErr)
		}
		if string(actual) != string(expected) {
			fmt.Printf("[%d] FAIL %q: expected %s, got %s\n", i, tc.Expression, expected, actual)
			failures++
			continue
		}
		fmt.Printf("[%d] ok %q\n", i, tc.Expression)
	}
	fmt.Printf("%d/%d passed\n", len(cases)-failures, len(cases))
	if failures > 0 {
		return fmt.Errorf("%d test case(s) failed", failures)
	}
	return nil
}

func printCollection(result types.Collection, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(projectCollection(result), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	if result.Empty() {
		fmt.Println("(empty)")
		return nil
	}
	for i, value := range result {
		if len(result) > 1 {
			fmt.Printf("[%d] ", i)
		}
		fmt.Println(value.String())
	}
	return nil
}
