package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/fhirlang/gofhir/pkg/metadata"
	"github.com/fhirlang/gofhir/pkg/validator"
)

func newValidateCmd() *cobra.Command {
	var packageDir, profile string
	var terminology, references bool
	var format string
	cmd := &cobra.Command{
		Use:   "validate FILE|-",
		Short: "Validate a FHIR resource against its StructureDefinition",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			resource, err := readResourceFile(args[0])
			if err != nil {
				return err
			}

			idx := metadata.NewIndex(validator.FHIRVersionR4)
			if packageDir != "" {
				sdCount, termCount, err := idx.LoadPackageDir(packageDir)
				if err != nil {
					return fmt.Errorf("failed to load package directory %s: %w", packageDir, err)
				}
				glog.V(1).Infof("loaded %d structure definitions, %d terminology resources from %s", sdCount, termCount, packageDir)
			}

			opts := validator.DefaultValidatorOptions()
			opts.ValidateTerminology = terminology
			opts.ValidateReferences = references
			opts.Profile = profile

			v := validator.NewValidator(idx, opts)
			ctx := context.Background()

			var result *validator.ValidationResult
			if profile != "" {
				result, err = v.ValidateWithProfile(ctx, resource, profile)
			} else {
				result, err = v.Validate(ctx, resource)
			}
			if err != nil {
				return fmt.Errorf("validation error: %w", err)
			}

			if err := printValidationResult(result, format); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("validation failed: %d error(s)", result.ErrorCount())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&packageDir, "package", "", "directory of StructureDefinition/ValueSet/CodeSystem JSON to load before validating")
	cmd.Flags().StringVar(&profile, "profile", "", "profile URL to validate against instead of the resource's base type")
	cmd.Flags().BoolVar(&terminology, "terminology", false, "validate coded elements against bound value sets")
	cmd.Flags().BoolVar(&references, "references", false, "validate resource reference targets")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

func printValidationResult(result *validator.ValidationResult, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if result.Valid {
		fmt.Printf("✓ valid (%d warning(s))\n", result.WarningCount())
	} else {
		fmt.Printf("✗ invalid: %d error(s), %d warning(s)\n", result.ErrorCount(), result.WarningCount())
	}
	for _, issue := range result.Issues {
		location := ""
		if len(issue.Location) > 0 {
			location = issue.Location[0]
		}
		fmt.Fprintf(os.Stdout, "  [%s] %s: %s\n", issue.Severity, location, issue.Diagnostics)
	}
	return nil
}
