package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 4, 2)

	if s := p.String(); s != "|    | [0.00%]" {
		t.Errorf("empty bar: have(%q)", s)
	}
	p.Increment()
	if s := p.String(); s != "|██  | [50.00%]" {
		t.Errorf("half bar: have(%q)", s)
	}

	// Progress saturates at the maximum
	p.Increment()
	p.Increment()
	p.SetMessage("loss %.1f", 1.5)
	if s := p.String(); s != "|████| [100.00%] loss 1.5" {
		t.Errorf("full bar: have(%q)", s)
	}

	p.Display()
	p.Close()
	if !strings.Contains(out.String(), "elapsed") {
		t.Errorf("display: missing elapsed time in %q", out.String())
	}
}
