package binding

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func createRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/test?"+query, nil)
}

// TestBasicTypes 测试基础类型
func TestBasicTypes(t *testing.T) {
	type QueryParams struct {
		Index  int     `query:"index"`
		Scale  uint8   `query:"scale"`
		Ratio  float64 `query:"ratio"`
		Zip    bool    `query:"zip"`
		Name   string  `query:"name"`
	}

	tests := []struct {
		name      string
		query     string
		want      QueryParams
		wantError bool
	}{
		{
			name:  "all fields set",
			query: "index=2&scale=50&ratio=0.25&zip=true&name=holiday",
			want:  QueryParams{Index: 2, Scale: 50, Ratio: 0.25, Zip: true, Name: "holiday"},
		},
		{
			name:  "partial fields",
			query: "index=1",
			want:  QueryParams{Index: 1},
		},
		{name: "invalid integer", query: "index=first", wantError: true},
		{name: "uint overflow", query: "scale=300", wantError: true},
		{name: "invalid boolean", query: "zip=maybe", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params QueryParams
			err := Query(createRequest(tt.query), &params)
			if (err != nil) != tt.wantError {
				t.Fatalf("Query() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && params != tt.want {
				t.Errorf("Query() got = %+v, want %+v", params, tt.want)
			}
		})
	}
}

// TestPrefilledValuesSurvive 未传参数时保留调用方预填的值
func TestPrefilledValuesSurvive(t *testing.T) {
	type Form struct {
		Format string `form:"format"`
		Scale  int    `form:"scale"`
	}

	form := Form{Format: "JPEG", Scale: 100}
	values := url.Values{"scale": {"40"}, "format": {"  "}}
	if err := NewFormParser().Parse(values, &form); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if form.Format != "JPEG" || form.Scale != 40 {
		t.Errorf("got %+v", form)
	}
}

// TestDefaultValues 测试默认值
func TestDefaultValues(t *testing.T) {
	type QueryParams struct {
		Index int    `query:"index" default:"0"`
		Limit int    `query:"limit" default:"10"`
		Order string `query:"order" default:"asc"`
	}

	var params QueryParams
	if err := Query(createRequest("order=desc"), &params); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	want := QueryParams{Index: 0, Limit: 10, Order: "desc"}
	if params != want {
		t.Errorf("Query() got = %+v, want %+v", params, want)
	}
}

// TestArrays 测试数组类型
func TestArrays(t *testing.T) {
	type QueryParams struct {
		Formats []string `query:"formats"`
		Indexes []int    `query:"indexes"`
	}

	tests := []struct {
		name    string
		query   string
		formats []string
		indexes []int
	}{
		{"multiple values", "formats=png&formats=webp", []string{"png", "webp"}, nil},
		{"comma separated", "formats=png,%20webp", []string{"png", "webp"}, nil},
		{"integer array", "indexes=0,2,5", nil, []int{0, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params QueryParams
			if err := Query(createRequest(tt.query), &params); err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if strings.Join(params.Formats, "|") != strings.Join(tt.formats, "|") {
				t.Errorf("Formats = %v, want %v", params.Formats, tt.formats)
			}
			if len(params.Indexes) != len(tt.indexes) {
				t.Fatalf("Indexes = %v, want %v", params.Indexes, tt.indexes)
			}
			for i := range tt.indexes {
				if params.Indexes[i] != tt.indexes[i] {
					t.Errorf("Indexes = %v, want %v", params.Indexes, tt.indexes)
				}
			}
		})
	}
}

// TestArrayStrategy 测试数组解析策略
func TestArrayStrategy(t *testing.T) {
	type Params struct {
		Names []string `query:"names"`
	}
	values := url.Values{"names": {"a,b"}}

	p := NewQueryParser()
	p.SetArrayStrategy(ArrayStrategyMultiple)
	var multiple Params
	if err := p.Parse(values, &multiple); err != nil {
		t.Fatal(err)
	}
	if len(multiple.Names) != 1 || multiple.Names[0] != "a,b" {
		t.Errorf("multiple strategy got %v", multiple.Names)
	}

	p.SetArrayStrategy(ArrayStrategyComma)
	var comma Params
	if err := p.Parse(values, &comma); err != nil {
		t.Fatal(err)
	}
	if len(comma.Names) != 2 {
		t.Errorf("comma strategy got %v", comma.Names)
	}
}

// TestNestedStructsAndPointers 测试嵌套结构体与指针
func TestNestedStructsAndPointers(t *testing.T) {
	type Window struct {
		Start int `query:"start"`
	}
	type Params struct {
		Window Window `query:"window"`
		Scale  *int   `query:"scale"`
		Skip   string `query:"-"`
	}

	var params Params
	if err := Query(createRequest("window.start=3&scale=25&Skip=x"), &params); err != nil {
		t.Fatal(err)
	}
	if params.Window.Start != 3 {
		t.Errorf("Window.Start = %d", params.Window.Start)
	}
	if params.Scale == nil || *params.Scale != 25 {
		t.Errorf("Scale = %v", params.Scale)
	}
	if params.Skip != "" {
		t.Errorf("ignored field was set: %q", params.Skip)
	}

	var empty Params
	if err := Query(createRequest(""), &empty); err != nil {
		t.Fatal(err)
	}
	if empty.Scale != nil {
		t.Errorf("absent pointer should stay nil")
	}
}

type upperCase string

func (u *upperCase) UnmarshalForm(s string) error {
	if s == "bad" {
		return errors.New("rejected")
	}
	*u = upperCase(strings.ToUpper(s))
	return nil
}

// TestCustomUnmarshaler 测试自定义解析
func TestCustomUnmarshaler(t *testing.T) {
	type Params struct {
		Format upperCase `query:"format"`
	}

	var params Params
	if err := Query(createRequest("format=webp"), &params); err != nil {
		t.Fatal(err)
	}
	if params.Format != "WEBP" {
		t.Errorf("Format = %q", params.Format)
	}

	err := Query(createRequest("format=bad"), &params)
	var bindErr *BindError
	if !errors.As(err, &bindErr) || bindErr.Field != "Format" {
		t.Fatalf("expected BindError on Format, got %v", err)
	}
	if appErr := bindErr.AppError(); appErr.Details["Format"] == nil {
		t.Errorf("AppError details missing field: %+v", appErr.Details)
	}
}

// TestValidation 测试校验
func TestValidation(t *testing.T) {
	type Params struct {
		Index int    `query:"index" validate:"min=0,max=49"`
		Name  string `query:"name" validate:"max=5"`
	}

	var params Params
	err := Query(createRequest("index=50&name=toolongname"), &params)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T %v", err, err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %v", verrs)
	}
	if verrs[0].Message != "must be at most 49" {
		t.Errorf("numeric message = %q", verrs[0].Message)
	}
	if verrs[1].Message != "must be at most 5 characters long" {
		t.Errorf("string message = %q", verrs[1].Message)
	}

	appErr := verrs.AppError()
	if appErr.Details["Index"] == nil || appErr.Details["Name"] == nil {
		t.Errorf("details = %+v", appErr.Details)
	}
}

// TestInvalidInput 测试非法目标
func TestInvalidInput(t *testing.T) {
	var notStruct int
	if err := Query(createRequest("a=1"), &notStruct); err == nil {
		t.Error("expected error for non-struct target")
	}
	type Params struct{ A int }
	var p Params
	if err := Query(createRequest("a=1"), p); err == nil {
		t.Error("expected error for non-pointer target")
	}
}
