package apiclient

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func TestStripTypeInfo(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "scalar",
			in:   `42`,
			want: `42`,
		},
		{
			name: "wrapped scalar",
			in:   `{"value": "foo", "type": "RDFString"}`,
			want: `"foo"`,
		},
		{
			name: "wrapped object with wrapped fields",
			in: `{"type": "ApiFlow", "value": {
				"name": {"type": "unicode", "value": "FileFinder"},
				"state": {"type": "EnumNamedValue", "value": "RUNNING"}
			}}`,
			want: `{"name": "FileFinder", "state": "RUNNING"}`,
		},
		{
			name: "array of wrapped",
			in:   `[{"value": 1, "type": "int"}, {"value": 2, "type": "int"}, 3]`,
			want: `[1, 2, 3]`,
		},
		{
			name: "wrapped array",
			in:   `{"type": "list", "value": [{"value": "a"}, {"value": "b"}]}`,
			want: `["a", "b"]`,
		},
		{
			name: "deeply nested",
			in: `{"value": {"args": {"value": {
				"paths": [{"value": "/etc/passwd"}, {"value": "/tmp/*"}],
				"action": {"value": {"action_type": {"value": "DOWNLOAD"}}}
			}}}}`,
			want: `{"args": {"paths": ["/etc/passwd", "/tmp/*"], "action": {"action_type": "DOWNLOAD"}}}`,
		},
		{
			name: "wrapped null",
			in:   `{"value": null, "type": "unicode"}`,
			want: `null`,
		},
		{
			name: "unwrapped value is not unwrapped again",
			in:   `{"value": {"value": 5, "type": "int"}}`,
			want: `{"value": 5, "type": "int"}`,
		},
		{
			name: "plain object stops recursion",
			in:   `{"name": {"value": "x", "type": "unicode"}}`,
			want: `{"name": {"value": "x", "type": "unicode"}}`,
		},
		{
			name: "plain object inside array stops recursion",
			in:   `[{"a": {"value": 1}}]`,
			want: `[{"a": {"value": 1}}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripTypeInfo(tree(t, tt.in))
			if diff := cmp.Diff(tree(t, tt.want), got); diff != "" {
				t.Fatalf("StripTypeInfo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripTypeInfo_DoesNotMutateInput(t *testing.T) {
	src := `{"value": {"a": {"value": [1, {"value": 2}]}, "b": [{"value": "x"}]}}`
	in := tree(t, src)
	before := tree(t, src)

	_ = StripTypeInfo(in)

	if diff := cmp.Diff(before, in); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestStripTypeInfo_IdempotentOnPlainValues(t *testing.T) {
	plain := []string{
		`{"a": 1, "b": [1, 2, {"c": "d"}], "e": null}`,
		`[1, "two", true, null, {"x": []}]`,
		`"scalar"`,
		`null`,
	}
	for _, src := range plain {
		in := tree(t, src)
		once := StripTypeInfo(in)
		if diff := cmp.Diff(in, once); diff != "" {
			t.Fatalf("StripTypeInfo(%s) changed a plain value:\n%s", src, diff)
		}
		twice := StripTypeInfo(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("StripTypeInfo not idempotent on %s:\n%s", src, diff)
		}
	}
}

func TestStripTypeInfo_ArrayMapsElementwise(t *testing.T) {
	a := tree(t, `{"value": {"x": {"value": 1}}}`)
	b := tree(t, `{"value": [{"value": true}]}`)

	got := StripTypeInfo([]any{a, b})
	want := []any{StripTypeInfo(a), StripTypeInfo(b)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("array not mapped elementwise (-want +got):\n%s", diff)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindLeaf, KindOf(nil))
	assert.Equal(t, KindLeaf, KindOf("s"))
	assert.Equal(t, KindLeaf, KindOf(json.Number("1")))
	assert.Equal(t, KindArray, KindOf([]any{}))
	assert.Equal(t, KindWrapped, KindOf(map[string]any{"value": nil}))
	assert.Equal(t, KindObject, KindOf(map[string]any{"type": "x"}))
	assert.Equal(t, "wrapped", KindWrapped.String())
}

func TestToTree_NormalizesGoValues(t *testing.T) {
	type arg struct {
		Value string `json:"value"`
		Type  string `json:"type"`
	}
	in := map[string]any{
		"value": map[string]arg{
			"path": {Value: "/bin/ls", Type: "unicode"},
		},
		"count": 10,
	}

	got, err := ToTree(in)
	require.NoError(t, err)

	want := map[string]any{
		"value": map[string]any{
			"path": map[string]any{"value": "/bin/ls", "type": "unicode"},
		},
		"count": json.Number("10"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToTree mismatch (-want +got):\n%s", diff)
	}

	stripped := StripTypeInfo(got)
	assert.Equal(t, map[string]any{"path": "/bin/ls"}, stripped)

	_, err = ToTree(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}
