package decision

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"action":"no_op"}`, `{"action":"no_op"}`, true},
		{"prose", `Sure! Here is my move: {"action":"no_op"} Good luck.`, `{"action":"no_op"}`, true},
		{"fenced", "```json\n{\"action\":\"acquire_territory\",\"quantity\":2}\n```", `{"action":"acquire_territory","quantity":2}`, true},
		{"braces in strings", `{"action":"no_op","message":"a } tricky { one"}`, `{"action":"no_op","message":"a } tricky { one"}`, true},
		{"nested", `x {"action":"attack","target_id":"e2","fleet":{"fighters":3}} y`, `{"action":"attack","target_id":"e2","fleet":{"fighters":3}}`, true},
		{"skips invalid", `{not json} then {"action":"no_op"}`, `{"action":"no_op"}`, true},
		{"none", `I pass this turn.`, "", false},
		{"unterminated", `{"action":"no_op"`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			if ok != tc.ok || string(got) != tc.want {
				t.Fatalf("ExtractJSON = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}
