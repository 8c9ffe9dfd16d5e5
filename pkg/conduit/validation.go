package conduit

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

var monogramPattern = regexp.MustCompile(`^([TD])(\d+)$`)

// ValidateToken checks the fixed Conduit token format. It runs before any
// network call; a malformed credential never leaves the process.
func ValidateToken(token string) error {
	if token == "" {
		return &ValidationError{Field: "token", Reason: "API token is required"}
	}

	if len(token) != constants.TokenLength {
		return &ValidationError{
			Field:  "token",
			Reason: fmt.Sprintf("API token must be exactly %d characters, got %d", constants.TokenLength, len(token)),
		}
	}

	if !strings.HasPrefix(token, constants.TokenPrefix) {
		return &ValidationError{Field: "token", Reason: `API token must start with "api-"`}
	}

	return nil
}

// NormalizeAPIURL validates that the API URL is absolute and normalizes it
// to end with a path separator, so method names can be joined directly.
func NormalizeAPIURL(raw string) (string, error) {
	if raw == "" {
		return "", &ValidationError{Field: "api_url", Reason: "API URL is required"}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "api_url", Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return "", &ValidationError{Field: "api_url", Reason: "API URL must be absolute (include scheme and host)"}
	}

	normalized := parsed.String()
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	return normalized, nil
}

// ParseTaskIdentifier accepts a numeric ID or a T-monogram ("T123") and
// returns the numeric task ID.
func ParseTaskIdentifier(identifier string) (int, error) {
	return parseMonogram(identifier, "T", "task")
}

// ParseRevisionIdentifier accepts a numeric ID or a D-monogram ("D456") and
// returns the numeric revision ID.
func ParseRevisionIdentifier(identifier string) (int, error) {
	return parseMonogram(identifier, "D", "revision")
}

func parseMonogram(identifier, prefix, kind string) (int, error) {
	identifier = strings.TrimSpace(identifier)

	if id, err := strconv.Atoi(identifier); err == nil && id > 0 {
		return id, nil
	}

	match := monogramPattern.FindStringSubmatch(identifier)
	if match == nil || match[1] != prefix {
		return 0, &ValidationError{
			Field:  kind,
			Reason: fmt.Sprintf("%s identifier must be a numeric ID or a %s-monogram like %s123", kind, prefix, prefix),
		}
	}

	id, err := strconv.Atoi(match[2])
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: kind, Reason: "identifier out of range"}
	}

	return id, nil
}

// ResourceKind names an editable resource for transaction validation.
type ResourceKind string

const (
	ResourceTask       ResourceKind = "task"
	ResourceRevision   ResourceKind = "revision"
	ResourceRepository ResourceKind = "repository"
	ResourceProject    ResourceKind = "project"
)

// Transaction types accepted by each edit endpoint. Mirrors the upstream
// *.edit transaction catalogs.
var transactionTypes = map[ResourceKind]map[string]struct{}{
	ResourceTask: setOf(
		"parent", "column", "space", "title", "owner", "status", "priority",
		"description", "parents.add", "parents.remove", "parents.set",
		"subtasks.add", "subtasks.remove", "subtasks.set",
		"projects.add", "projects.remove", "projects.set",
		"subscribers.add", "subscribers.remove", "subscribers.set",
		"view", "edit", "subtype", "comment", "mfa",
	),
	ResourceRevision: setOf(
		"update", "title", "summary", "testPlan", "reviewers.add",
		"reviewers.remove", "reviewers.set", "repositoryPHID",
		"projects.add", "projects.remove", "projects.set",
		"subscribers.add", "subscribers.remove", "subscribers.set",
		"accept", "reject", "abandon", "reclaim", "plan-changes",
		"request-review", "close", "comment", "view", "edit", "draft", "mfa",
	),
	ResourceRepository: setOf(
		"vcs", "name", "callsign", "shortName", "description", "encoding",
		"allowDangerousChanges", "allowEnormousChanges", "status",
		"defaultBranch", "fetchRefs", "permanentRefs", "trackOnly",
		"importOnly", "stagingAreaURI", "automationBlueprintPHIDs",
		"symbolLanguages", "symbolRepositoryPHIDs", "publish", "view",
		"edit", "policy.push", "space", "mfa",
	),
	ResourceProject: setOf(
		"name", "slugs", "subtype", "milestone", "parent", "description",
		"icon", "color", "members.add", "members.remove", "members.set",
		"view", "edit", "join", "space", "mfa",
	),
}

func setOf(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}

	return set
}

// ValidateTransactions checks an ordered transaction list against the known
// type set for a resource kind, before anything is sent over the network.
func ValidateTransactions(kind ResourceKind, transactions []Transaction) error {
	if len(transactions) == 0 {
		return &ValidationError{Field: "transactions", Reason: "at least one transaction is required"}
	}

	known, ok := transactionTypes[kind]
	if !ok {
		return &ValidationError{Field: "resource", Reason: fmt.Sprintf("unsupported resource kind %q", kind)}
	}

	for i, txn := range transactions {
		if txn.Type == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("transactions[%d]", i),
				Reason: "transaction type is required",
			}
		}

		if _, ok := known[txn.Type]; !ok {
			return &ValidationError{
				Field:  fmt.Sprintf("transactions[%d]", i),
				Reason: fmt.Sprintf("unknown transaction type %q for %s edits", txn.Type, kind),
			}
		}
	}

	return nil
}

// Validator selects between the strict schema-checked call path and a
// pass-through path. Both share the same core call logic; only the checks
// differ.
type Validator struct {
	Strict bool
}

// ValidateConstraints applies shape checks to a constraint map in strict
// mode; the pass-through path accepts anything and lets the server decide.
func (v *Validator) ValidateConstraints(constraints map[string]any) error {
	if v == nil || !v.Strict {
		return nil
	}

	for key, value := range constraints {
		switch {
		case strings.HasSuffix(key, "PHIDs") || strings.HasSuffix(key, "IDs") || key == "statuses" || key == "priorities" || key == "projects":
			if !isList(value) {
				return &ValidationError{Field: "constraints." + key, Reason: "must be a list"}
			}
		case strings.HasSuffix(key, "Start") || strings.HasSuffix(key, "End"):
			if !isInteger(value) {
				return &ValidationError{Field: "constraints." + key, Reason: "must be an integer epoch"}
			}
		case key == "query":
			if _, ok := value.(string); !ok {
				return &ValidationError{Field: "constraints.query", Reason: "must be a string"}
			}
		}
	}

	return nil
}

func isList(value any) bool {
	switch value.(type) {
	case []any, []string, []int:
		return true
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int32, int64:
		return true
	default:
		return false
	}
}
