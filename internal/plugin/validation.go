package plugin

import (
	"fmt"

	"github.com/openartmap/ingest/internal/domain"
)

// Validation error codes.
const (
	CodeMissingName        = "MISSING_NAME"
	CodeMissingDescription = "MISSING_DESCRIPTION"
	CodeMissingMethod      = "MISSING_METHOD"
	CodeInvalidType        = "INVALID_TYPE"
	CodeInvalidOutputType  = "INVALID_OUTPUT_TYPE"
	CodeMissingMetadata    = "MISSING_METADATA"
)

// validateImporter runs the registration-time validation pass on an
// importer spec. Checks run in order: required strings, capability
// functions, list-typed fields, optional metadata.
func validateImporter(spec ImporterSpec) ValidationResult {
	var result ValidationResult

	result.Errors = appendStringChecks(result.Errors, spec.Name, spec.Description)

	if spec.MapData == nil {
		result.Errors = append(result.Errors, missingMethod("mapData"))
	}
	if spec.ValidateData == nil {
		result.Errors = append(result.Errors, missingMethod("validateData"))
	}
	if spec.GenerateImportID == nil {
		result.Errors = append(result.Errors, missingMethod("generateImportId"))
	}

	if spec.SupportedFormats == nil {
		result.Errors = append(result.Errors, invalidType("supportedFormats"))
	}
	if spec.RequiredFields == nil {
		result.Errors = append(result.Errors, invalidType("requiredFields"))
	}

	if spec.Metadata == nil {
		result.Warnings = append(result.Warnings, missingMetadata())
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// validateExporter runs the registration-time validation pass on an
// exporter spec.
func validateExporter(spec ExporterSpec) ValidationResult {
	var result ValidationResult

	result.Errors = appendStringChecks(result.Errors, spec.Name, spec.Description)

	if spec.Export == nil {
		result.Errors = append(result.Errors, missingMethod("export"))
	}
	if spec.Configure == nil {
		result.Errors = append(result.Errors, missingMethod("configure"))
	}
	if spec.Validate == nil {
		result.Errors = append(result.Errors, missingMethod("validate"))
	}

	if spec.SupportedFormats == nil {
		result.Errors = append(result.Errors, invalidType("supportedFormats"))
	}

	if _, ok := validOutputTypes[spec.OutputType]; !ok {
		result.Errors = append(result.Errors, domain.ValidationError{
			Code:     CodeInvalidOutputType,
			Field:    "outputType",
			Message:  fmt.Sprintf("output type %q is not one of file, api, stream, console", spec.OutputType),
			Severity: domain.SeverityError,
		})
	}

	if spec.Metadata == nil {
		result.Warnings = append(result.Warnings, missingMetadata())
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// appendStringChecks validates the required name and description
// fields common to both plugin kinds.
func appendStringChecks(errs []domain.ValidationError, name, description string) []domain.ValidationError {
	if name == "" {
		errs = append(errs, domain.ValidationError{
			Code:     CodeMissingName,
			Field:    "name",
			Message:  "plugin name is required",
			Severity: domain.SeverityError,
		})
	}
	if description == "" {
		errs = append(errs, domain.ValidationError{
			Code:     CodeMissingDescription,
			Field:    "description",
			Message:  "plugin description is required",
			Severity: domain.SeverityError,
		})
	}
	return errs
}

func missingMethod(field string) domain.ValidationError {
	return domain.ValidationError{
		Code:     CodeMissingMethod,
		Field:    field,
		Message:  fmt.Sprintf("required capability %s is not provided", field),
		Severity: domain.SeverityError,
	}
}

func invalidType(field string) domain.ValidationError {
	return domain.ValidationError{
		Code:     CodeInvalidType,
		Field:    field,
		Message:  fmt.Sprintf("%s must be a list, even when empty", field),
		Severity: domain.SeverityError,
	}
}

func missingMetadata() domain.ValidationError {
	return domain.ValidationError{
		Code:     CodeMissingMetadata,
		Field:    "metadata",
		Message:  "optional metadata is not set",
		Severity: domain.SeverityWarning,
	}
}
