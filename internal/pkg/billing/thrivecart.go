package billing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	ProviderThriveCart = "thrivecart"

	// ThriveCartSecretField carries the shared secret in every delivery.
	ThriveCartSecretField = "thrivecart_secret"
)

// Field aliases in order of precedence. Subscription ids come first so that
// renewals and cancellations of a subscription hit the same grant.
var (
	thriveCartEmailFields = []string{"customer[email]", "customer_email", "email"}
	thriveCartSkuFields   = []string{"sku", "product_sku", "passthrough_sku", "passthrough[sku]"}
	thriveCartOrderFields = []string{"subscription_id", "subscription[id]", "order_id", "invoice_id"}
)

// ThriveCartEvent maps a flattened ThriveCart delivery onto an Event. It
// does not validate; the Processor does.
func ThriveCartEvent(fields map[string]string) Event {
	ev := Event{
		Provider: ProviderThriveCart,
		Type:     normalizeEventType(fields["event"]),
		OrderID:  firstField(fields, thriveCartOrderFields),
		Email:    strings.ToLower(firstField(fields, thriveCartEmailFields)),
		Sku:      firstField(fields, thriveCartSkuFields),
	}

	// never persist the secret into the audit trail
	redacted := make(map[string]string, len(fields))
	for k, v := range fields {
		if k == ThriveCartSecretField {
			continue
		}
		redacted[k] = v
	}
	if raw, err := json.Marshal(redacted); err == nil {
		ev.PayloadJSON = string(raw)
	}
	return ev
}

func firstField(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

// FlattenJSON turns a JSON delivery into the same key space as a form post:
// nested objects become bracketed keys ("customer[email]").
func FlattenJSON(body []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook json: %w", err)
	}
	out := make(map[string]string, len(raw))
	flattenInto(out, "", raw)
	return out, nil
}

func flattenInto(out map[string]string, prefix string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "[" + k + "]"
			}
			flattenInto(out, key, val[k])
		}
	case []interface{}:
		for i, item := range val {
			flattenInto(out, prefix+"["+strconv.Itoa(i)+"]", item)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = val
	case float64:
		out[prefix] = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		out[prefix] = strconv.FormatBool(val)
	default:
		out[prefix] = fmt.Sprint(val)
	}
}
