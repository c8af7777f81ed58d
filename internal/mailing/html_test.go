package mailing

import (
	"net/url"
	"strings"
	"testing"
)

const base = "https://mail.example.com"

func TestRewriteLinks(t *testing.T) {
	in := `<a href="https://shop.example.com/sale?ref=1">Sale</a> <a href="http://example.org/x">Other</a>`
	out := RewriteLinks(in, base, "msg-1")

	if strings.Contains(out, `href="https://shop.example.com`) {
		t.Error("external link not rewritten")
	}
	want := base + "/track/click/msg-1?url=" + url.QueryEscape("https://shop.example.com/sale?ref=1")
	if !strings.Contains(out, want) {
		t.Errorf("rewritten link missing, got:\n%s", out)
	}
	if !strings.Contains(out, url.QueryEscape("http://example.org/x")) {
		t.Error("second link not rewritten")
	}
}

func TestRewriteLinks_SkipsNonHTTP(t *testing.T) {
	in := `<a href="mailto:team@example.com">Write us</a> <a href="#section">Jump</a>`
	out := RewriteLinks(in, base, "msg-1")
	if out != in {
		t.Errorf("non-http links changed:\n%s", out)
	}
}

func TestRewriteLinks_SkipsOwnOrigin(t *testing.T) {
	in := `<a href="` + base + `/unsubscribe/tok123">Unsubscribe</a>`
	out := RewriteLinks(in, base, "msg-1")
	if out != in {
		t.Errorf("unsubscribe link double-wrapped:\n%s", out)
	}
}

func TestInjectPixel(t *testing.T) {
	in := `<html><body><p>Hi</p></body></html>`
	out := InjectPixel(in, base, "msg-1")

	pixelIdx := strings.Index(out, "/track/open/msg-1")
	bodyIdx := strings.Index(out, "</body>")
	if pixelIdx < 0 {
		t.Fatal("pixel missing")
	}
	if bodyIdx >= 0 && pixelIdx > bodyIdx {
		t.Error("pixel injected after closing body tag")
	}
}

func TestInjectPixel_NoBodyTag(t *testing.T) {
	out := InjectPixel("<p>Hi</p>", base, "msg-1")
	if !strings.HasSuffix(out, `style="display:none"/>`) {
		t.Errorf("pixel not appended: %s", out)
	}
}

func TestInjectUnsubscribeLink(t *testing.T) {
	in := `<html><body><p>Hi</p></body></html>`
	out := InjectUnsubscribeLink(in, base+"/unsubscribe/tok")

	if !strings.Contains(out, `href="`+base+`/unsubscribe/tok"`) {
		t.Fatal("unsubscribe link missing")
	}
	if strings.Index(out, "Unsubscribe") > strings.Index(out, "</body>") {
		t.Error("footer injected after closing body tag")
	}
}
