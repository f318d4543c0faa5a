package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"job_id": "job_001"}`, `{"job_id": "job_001"}`},
		{"json fence", "```json\n{\"job_id\": \"job_001\"}\n```", `{"job_id": "job_001"}`},
		{"bare fence", "```\n{\"job_id\": \"job_001\"}\n```", `{"job_id": "job_001"}`},
		{"other language tag", "```javascript\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without newline", "```{\"a\": 1}```", `{"a": 1}`},
		{"preamble", "Here is the structured resume:\n{\"contact_info\": {\"name\": \"Ada\"}}", `{"contact_info": {"name": "Ada"}}`},
		{"trailing chatter", "{\"a\": 1}\n\nLet me know if you need changes.", `{"a": 1}`},
		{"array of issues", "Issues found:\n[{\"issue_id\": \"I1\"}, {\"issue_id\": \"I2\"}]", `[{"issue_id": "I1"}, {"issue_id": "I2"}]`},
		{"empty array", "No issues: []", `[]`},
		{"brackets inside strings", `{"description": "uses {braces} and [brackets]"}`, `{"description": "uses {braces} and [brackets]"}`},
		{"escaped quotes", `Result: {"msg": "He said \"hi }\""} done`, `{"msg": "He said \"hi }\""}`},
		{"nested", `x {"a": {"b": [1, {"c": 2}]}} y`, `{"a": {"b": [1, {"c": 2}]}}`},
		{"unbalanced", `  {"a": 1  `, `{"a": 1`},
		{"no json", "  I cannot help with that.  ", "I cannot help with that."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestBalanced(t *testing.T) {
	assert.Equal(t, `{"a": "}"}`, balanced(`{"a": "}"} tail`, '{', '}'))
	assert.Equal(t, `[[1], [2]]`, balanced(`[[1], [2]], more`, '[', ']'))
	assert.Empty(t, balanced(`{"a": 1`, '{', '}'))
}
