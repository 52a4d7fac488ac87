package webfetch

import "testing"

func TestExtractText(t *testing.T) {
	html := `<html><head>
<style>body { color: red }</style>
<script>var tracking = true;</script>
</head><body>
  <h1>碩士班 正取名單</h1>
  <p>王小明</p>

  <p>張*睿</p>
</body></html>`

	got := ExtractText(html)
	want := "碩士班 正取名單\n王小明\n張*睿"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
