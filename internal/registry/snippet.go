package registry

import (
	"fmt"
	"sort"
	"strings"

	"model_registry/internal/models"
)

// GenerateLoadingCode produces a human-readable Go snippet showing how to
// load a registered model version. Pure function of the record: no I/O, and
// it never fails on a well-formed ModelVersion.
func GenerateLoadingCode(mv models.ModelVersion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "// Auto-generated loading snippet for model: %s\n", mv.ModelName)
	fmt.Fprintf(&b, "// Version: %s\n", mv.Version)
	fmt.Fprintf(&b, "// Stage: %s\n", mv.Stage)
	if !mv.RegisteredAt.IsZero() {
		fmt.Fprintf(&b, "// Registered: %s\n", mv.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	b.WriteString("\n")

	b.WriteString("ldr := loader.New(store, backend, resolver)\n")
	fmt.Fprintf(&b, "handle, err := ldr.Load(ctx, %q, %q)\n", mv.ModelName, mv.Version)
	b.WriteString("if err != nil {\n\tlog.Fatal(err)\n}\n")

	if len(mv.Metrics) > 0 {
		b.WriteString("\n// Training metrics:\n")
		for _, k := range sortedKeys(mv.Metrics) {
			fmt.Fprintf(&b, "//   %s = %g\n", k, mv.Metrics[k])
		}
	}
	if len(mv.Params) > 0 {
		b.WriteString("\n// Training parameters:\n")
		for _, k := range sortedKeys(mv.Params) {
			fmt.Fprintf(&b, "//   %s = %s\n", k, mv.Params[k])
		}
	}

	if reqs, ok := mv.CustomMetadata["requirements"].([]any); ok && len(reqs) > 0 {
		b.WriteString("\n// Requirements:\n")
		for _, r := range reqs {
			fmt.Fprintf(&b, "//   %v\n", r)
		}
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
