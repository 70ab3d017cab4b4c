package quota

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		timeout     bool
		consecutive int
		want        BackoffClass
	}{
		{"rate limited", 429, false, 0, ClassRateLimited},
		{"forbidden", 403, false, 1, ClassForbidden},
		{"unauthorized", 401, false, 0, ClassForbidden},
		{"timeout", 0, true, 1, ClassTimeout},
		{"server error", 500, false, 0, ClassServerError},
		{"bad gateway", 502, false, 2, ClassServerError},
		{"escalates at three errors", 429, false, 3, ClassConsecutiveErrors},
		{"escalation beats timeout", 0, true, 5, ClassConsecutiveErrors},
	}

	for _, tc := range cases {
		if got := Classify(tc.status, tc.timeout, tc.consecutive); got != tc.want {
			t.Errorf("%s: Classify(%d, %v, %d) = %s, want %s",
				tc.name, tc.status, tc.timeout, tc.consecutive, got, tc.want)
		}
	}
}
