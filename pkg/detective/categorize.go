package detective

import (
	"strings"

	"github.com/manik3160/NeverDown/pkg/domain"
)

// Categorize assigns a closed FailureCategory to an extracted error by
// matching its kind and message against the fixed ruleset of §4.2.
func Categorize(e domain.ExtractedError) domain.FailureCategory {
	kind := strings.ToLower(e.Kind)
	msg := strings.ToLower(e.Message)

	switch {
	case strings.Contains(kind, "timeout") || strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return domain.CategoryTimeout
	case kind == "nameerror":
		return domain.CategoryName
	case kind == "typeerror":
		return domain.CategoryType
	case kind == "syntaxerror" || kind == "indentationerror":
		return domain.CategorySyntax
	case kind == "importerror" || kind == "modulenotfounderror":
		return domain.CategoryImport
	case strings.Contains(kind, "permission") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "access denied"):
		return domain.CategoryPermission
	case strings.Contains(kind, "connection") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset"):
		return domain.CategoryConnection
	case strings.Contains(kind, "operationalerror") || strings.Contains(kind, "integrityerror") || strings.Contains(msg, "database") || strings.Contains(msg, "sql"):
		return domain.CategoryDatabase
	case strings.Contains(msg, "config") || strings.Contains(msg, "environment variable") || strings.Contains(msg, "not set"):
		return domain.CategoryConfigMismatch
	case strings.Contains(msg, "version") && (strings.Contains(msg, "incompatible") || strings.Contains(msg, "requires")):
		return domain.CategoryDependencyVersion
	case kind == "attributeerror" || kind == "valueerror" || kind == "keyerror" || kind == "indexerror":
		return domain.CategoryLogic
	default:
		return domain.CategoryUnknown
	}
}
