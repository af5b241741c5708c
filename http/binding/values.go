package binding

import (
	"reflect"
	"strconv"
	"strings"
)

// FormUnmarshaler 自定义类型可以实现此接口来自定义 query/form 参数解析
type FormUnmarshaler interface {
	UnmarshalForm(string) error
}

var formUnmarshalerType = reflect.TypeOf((*FormUnmarshaler)(nil)).Elem()

// ArrayStrategy 数组解析策略
type ArrayStrategy int

const (
	// ArrayStrategyMultiple 多次传参：?tags=go&tags=rust
	ArrayStrategyMultiple ArrayStrategy = iota
	// ArrayStrategyComma 逗号分隔：?tags=go,rust
	ArrayStrategyComma
	// ArrayStrategyBoth 两种都支持，优先多次传参
	ArrayStrategyBoth
)

// ValuesParser 将 url.Values 风格的键值解析到结构体
//
// Fields without a value (absent or empty) keep what the caller put there,
// unless a `default` tag supplies one. Callers pre-fill configured defaults
// this way.
type ValuesParser struct {
	tagName       string
	defaultTag    string
	arrayStrategy ArrayStrategy
}

// NewQueryParser 创建 query 标签解析器
func NewQueryParser() *ValuesParser {
	return NewValuesParser("query")
}

// NewFormParser 创建 form 标签解析器
func NewFormParser() *ValuesParser {
	return NewValuesParser("form")
}

func NewValuesParser(tagName string) *ValuesParser {
	return &ValuesParser{
		tagName:       tagName,
		defaultTag:    "default",
		arrayStrategy: ArrayStrategyBoth,
	}
}

// SetArrayStrategy 设置数组解析策略
func (p *ValuesParser) SetArrayStrategy(strategy ArrayStrategy) {
	p.arrayStrategy = strategy
}

// Parse 解析参数到结构体
func (p *ValuesParser) Parse(values map[string][]string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a non-nil pointer",
		}
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a pointer to struct",
		}
	}

	return p.parseStruct(values, rv, "")
}

func (p *ValuesParser) parseStruct(values map[string][]string, rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		// 匿名嵌入结构体的字段提升到当前层级
		if fieldType.Anonymous && field.Kind() == reflect.Struct {
			if err := p.parseStruct(values, field, prefix); err != nil {
				return err
			}
			continue
		}

		name := p.fieldName(fieldType, prefix)
		if name == "-" {
			continue
		}

		// 嵌套结构体（未实现 FormUnmarshaler 的）递归处理
		if field.Kind() == reflect.Struct && !reflect.PointerTo(field.Type()).Implements(formUnmarshalerType) {
			if err := p.parseStruct(values, field, name+"."); err != nil {
				return err
			}
			continue
		}

		raw := nonEmpty(values[name])
		if len(raw) == 0 {
			def := fieldType.Tag.Get(p.defaultTag)
			if def == "" {
				continue
			}
			raw = []string{def}
		}

		if err := p.setValue(field, raw, fieldType.Name); err != nil {
			return err
		}
	}

	return nil
}

// fieldName 获取字段对应的参数名：优先 tagName，其次 json，最后字段名小写
func (p *ValuesParser) fieldName(fieldType reflect.StructField, prefix string) string {
	for _, tag := range []string{p.tagName, "json"} {
		if value := fieldType.Tag.Get(tag); value != "" {
			name := strings.Split(value, ",")[0]
			if name == "-" {
				return "-"
			}
			return prefix + name
		}
	}
	return prefix + strings.ToLower(fieldType.Name)
}

func (p *ValuesParser) setValue(field reflect.Value, values []string, fieldName string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return p.setValue(field.Elem(), values, fieldName)
	}

	if field.CanAddr() && field.Addr().Type().Implements(formUnmarshalerType) {
		if err := field.Addr().Interface().(FormUnmarshaler).UnmarshalForm(values[0]); err != nil {
			return &BindError{
				Type:    "bind_error",
				Field:   fieldName,
				Message: err.Error(),
			}
		}
		return nil
	}

	if field.Kind() == reflect.Slice {
		return p.setSlice(field, values, fieldName)
	}
	return setScalar(field, values[0], fieldName)
}

func (p *ValuesParser) setSlice(field reflect.Value, values []string, fieldName string) error {
	var items []string
	switch p.arrayStrategy {
	case ArrayStrategyMultiple:
		items = values
	case ArrayStrategyComma:
		items = strings.Split(values[0], ",")
	case ArrayStrategyBoth:
		if len(values) == 1 && strings.Contains(values[0], ",") {
			items = strings.Split(values[0], ",")
		} else {
			items = values
		}
	}

	slice := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, item := range items {
		if err := setScalar(slice.Index(i), strings.TrimSpace(item), fieldName); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}

// setScalar 根据字段类型设置值
func setScalar(field reflect.Value, value string, fieldName string) error {
	fail := func(kind string, err error) error {
		return &BindError{
			Type:    "bind_error",
			Field:   fieldName,
			Message: "invalid " + kind + " value: " + err.Error(),
		}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fail("integer", err)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fail("unsigned integer", err)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fail("float", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fail("boolean", err)
		}
		field.SetBool(b)
	default:
		return &BindError{
			Type:    "bind_error",
			Field:   fieldName,
			Message: "unsupported field type: " + field.Kind().String(),
		}
	}
	return nil
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
