// names_test.go - Tests fuer Parsing und Validierung von Modellnamen
package names

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		model string
		tag   string
	}{
		{"sentiment", "sentiment", "latest"},
		{"sentiment:v2", "sentiment", "v2"},
		{"sentiment:", "sentiment", "latest"},
		{"my_model-1.2:beta", "my_model-1.2", "beta"},
	}

	for _, c := range cases {
		got := Parse(c.in)
		if got.Model != c.model || got.Tag != c.tag {
			t.Errorf("Parse(%q) = %+v, erwartet {%s %s}", c.in, got, c.model, c.tag)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"sentiment",
		"sentiment:v2",
		"my_model",
		"model-1.2.3",
		"A:latest",
	}
	for _, s := range valid {
		if !Parse(s).IsValid() {
			t.Errorf("Parse(%q).IsValid() = false", s)
		}
	}

	invalid := []string{
		"",
		"-leading-dash",
		".hidden",
		"has space",
		"slash/inside",
		"dots/../up",
		"model:bad tag",
		"model::double",
	}
	for _, s := range invalid {
		if Parse(s).IsValid() {
			t.Errorf("Parse(%q).IsValid() = true", s)
		}
	}
}

func TestString(t *testing.T) {
	if got := Parse("sentiment").String(); got != "sentiment" {
		t.Errorf("String() = %q, Default-Tag darf nicht erscheinen", got)
	}
	if got := Parse("sentiment:v2").String(); got != "sentiment:v2" {
		t.Errorf("String() = %q, erwartet sentiment:v2", got)
	}
}

func TestFilepath(t *testing.T) {
	n := Parse("sentiment:v2")
	if got := n.Filepath(); got != "sentiment/v2" {
		t.Errorf("Filepath() = %q, erwartet sentiment/v2", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("Filepath eines invaliden Namens muss panicen")
		}
	}()
	Name{Model: "bad name"}.Filepath()
}
