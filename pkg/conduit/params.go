package conduit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// SearchOptions is the common input to *.search operations.
type SearchOptions struct {
	// QueryKey selects a builtin query ("assigned", "authored",
	// "subscribed", "open", "all").
	QueryKey string

	// Constraints narrows results, e.g. {"statuses": ["open"]}. Nested
	// maps and lists are flattened to Conduit's PHP-style form keys.
	Constraints map[string]any

	// Attachments requests extra result data, e.g. {"projects": true}.
	Attachments map[string]bool

	// Order is a builtin ordering key such as "newest".
	Order string

	// Before and After are opaque page cursors from a prior result.
	Before string
	After  string

	// Limit is the page size. Zero means the server default.
	Limit int

	// ItemBudget overrides the client's default shaper budget for this
	// call. Zero means the client default; negative disables shaping.
	ItemBudget int
}

// BuildSearchParams flattens search options into Conduit form parameters.
// Map keys are emitted in sorted order so two option sets with the same
// content always produce identical parameters regardless of map iteration
// order.
func BuildSearchParams(opts *SearchOptions) url.Values {
	params := url.Values{}
	if opts == nil {
		return params
	}

	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	if opts.QueryKey != "" {
		params.Set("queryKey", opts.QueryKey)
	}

	if opts.Order != "" {
		params.Set("order", opts.Order)
	}

	if opts.Before != "" {
		params.Set("before", opts.Before)
	}

	if opts.After != "" {
		params.Set("after", opts.After)
	}

	flattenInto(params, opts.Constraints, "constraints")

	if len(opts.Attachments) > 0 {
		attachments := make(map[string]any, len(opts.Attachments))
		for key, value := range opts.Attachments {
			attachments[key] = value
		}

		flattenInto(params, attachments, "attachments")
	}

	return params
}

// BuildTransactionParams flattens an ordered transaction list into Conduit
// form parameters for an *.edit call. Transaction order is preserved: the
// remote service applies them atomically in the order given.
func BuildTransactionParams(objectIdentifier string, transactions []Transaction) url.Values {
	params := url.Values{}

	if objectIdentifier != "" {
		params.Set("objectIdentifier", objectIdentifier)
	}

	for i, txn := range transactions {
		prefix := fmt.Sprintf("transactions[%d]", i)
		params.Set(prefix+"[type]", txn.Type)
		flattenValue(params, txn.Value, prefix+"[value]")
	}

	return params
}

// FlattenParams flattens a nested value into Conduit's PHP-style form keys,
// e.g. {"statuses": ["open"]} with prefix "constraints" becomes
// "constraints[statuses][0]" = "open".
func FlattenParams(value any, prefix string) url.Values {
	params := url.Values{}
	flattenValue(params, value, prefix)

	return params
}

func flattenInto(params url.Values, m map[string]any, prefix string) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		flattenValue(params, m[key], prefix+"["+key+"]")
	}
}

func flattenValue(params url.Values, value any, prefix string) {
	switch v := value.(type) {
	case nil:
		return
	case map[string]any:
		flattenInto(params, v, prefix)
	case []any:
		for i, item := range v {
			flattenValue(params, item, prefix+"["+strconv.Itoa(i)+"]")
		}
	case []string:
		for i, item := range v {
			params.Set(prefix+"["+strconv.Itoa(i)+"]", item)
		}
	case []int:
		for i, item := range v {
			params.Set(prefix+"["+strconv.Itoa(i)+"]", strconv.Itoa(item))
		}
	case bool:
		if v {
			params.Set(prefix, "1")
		} else {
			params.Set(prefix, "0")
		}
	case string:
		params.Set(prefix, v)
	case int:
		params.Set(prefix, strconv.Itoa(v))
	case int64:
		params.Set(prefix, strconv.FormatInt(v, 10))
	case float64:
		params.Set(prefix, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		params.Set(prefix, fmt.Sprint(v))
	}
}

// Fingerprint derives the deterministic cache key for a request. The method
// name leads the key so mutations can invalidate a whole namespace by
// prefix; the credential digest isolates tenants sharing one cache.
// url.Values.Encode sorts by key, so insertion order cannot affect the
// fingerprint.
func Fingerprint(method string, params url.Values, credentialDigest string) string {
	sum := sha256.Sum256([]byte(method + "|" + params.Encode() + "|" + credentialDigest))

	return method + ":" + hex.EncodeToString(sum[:])
}

// CredentialDigest derives the tenant discriminator used in fingerprints.
// The raw token never appears in cache keys or logs.
func CredentialDigest(token string) string {
	if token == "" {
		return "anonymous"
	}

	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:8])
}
