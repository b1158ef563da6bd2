package normalize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"punctuation", "Acme, Inc.", "acme inc"},
		{"collapse whitespace", "  widget   company  ", "widget company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"S3: The Widget Co.", "The Widget Co.", "widget"},
		{"S3: widget company", "widget company", "widget"},
		{"legal suffix", "Acme, Inc.", "acme"},
		{"alternate legal suffix", "ACME INCORPORATED", "acme"},
		{"article not stripped mid-token", "Anchor Co", "anchor"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyName(tt.in); got != tt.want {
				t.Errorf("CompanyName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"street abbreviation", "100 Main Street", "100 main st"},
		{"already abbreviated", "100 Main St", "100 main st"},
		{"suite", "500 Oak Avenue Suite 200", "500 oak ave ste 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Address(tt.in); got != tt.want {
				t.Errorf("Address(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"formatted 10-digit", "(212) 555-0100", "2125550100"},
		{"11-digit leading one stripped", "1-212-555-0100", "2125550100"},
		{"11-digit not leading one kept whole", "22125550100", "22125550100"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phone(tt.in); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  OPS@Acme.COM "); got != "ops@acme.com" {
		t.Errorf("Email() = %q", got)
	}
}

// P1: normalize_X(normalize_X(s)) == normalize_X(s) for all normalizers.
func TestIdempotence(t *testing.T) {
	samples := []string{"Acme, Inc.", "100 Main Street", "(212) 555-0100", " OPS@Acme.com ", "widget company", ""}
	fns := map[string]func(string) string{
		"text": Text, "company": CompanyName, "address": Address, "phone": Phone, "email": Email,
	}
	for fname, fn := range fns {
		for _, s := range samples {
			once := fn(s)
			twice := fn(once)
			if once != twice {
				t.Errorf("%s: not idempotent on %q: once=%q twice=%q", fname, s, once, twice)
			}
		}
	}
}
