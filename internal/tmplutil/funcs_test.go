package tmplutil

import (
	"bytes"
	"html/template"
	"testing"
)

func TestFuncMapHelpers(t *testing.T) {
	tpl := template.Must(template.New("t").Funcs(FuncMap()).Parse(
		`{{namespace .Name}}|{{route .Name}}|{{times .One}}|{{times .Many}}|{{upper "x"}}|{{json .Name}}`))

	var buf bytes.Buffer
	err := tpl.Execute(&buf, map[string]interface{}{
		"Name": "totalActions/Home/Index",
		"One":  int64(1),
		"Many": int64(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `totalActions|Home/Index|once|3 times|X|&#34;totalActions/Home/Index&#34;`
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
