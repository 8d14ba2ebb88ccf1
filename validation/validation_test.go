package validation

import "testing"

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	Required("email", "a@b.nl", v)
	PositiveFloat("rate", 0, v)
	NonNegativeFloat("hours", -1, v)
	RangeFloat("taxRate", 1.5, 0, 1, v)
	Email("contact", "geen-adres", v)

	want := map[string]string{
		"name":    "required",
		"rate":    "must_be_positive",
		"hours":   "must_not_be_negative",
		"taxRate": "out_of_range",
		"contact": "invalid_email",
	}
	if len(v) != len(want) {
		t.Fatalf("violations = %v", v)
	}
	for field, code := range want {
		if v[field] != code {
			t.Fatalf("%s = %q, want %q", field, v[field], code)
		}
	}

	ok := make(Violations)
	Email("contact", "info@onlinelabs.nl", ok)
	NonNegativeFloat("hours", 0, ok)
	if !ok.Empty() {
		t.Fatalf("unexpected violations: %v", ok)
	}
}
