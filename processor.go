package protected

import (
	"reflect"

	"github.com/zoobzio/sentinel"
)

// TagProtect is the struct tag controlling ProtectStruct. The value "-"
// excludes a field.
const TagProtect = "protect"

func init() {
	sentinel.Tag(TagProtect)
}

// ProtectStruct protects the tokens of every exported string, []string and
// map[K]string field of *v, descending into nested structs and non-nil
// struct pointers. Fields tagged `protect:"-"` are skipped.
// T must be a struct type.
func ProtectStruct[T any](cfg *ProtectConfig, v *T) error {
	if err := requireValid(cfg); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	spec := sentinel.Scan[T]()
	return protectFields(cfg, reflect.ValueOf(v).Elem(), spec, "")
}

// protectFields walks the fields described by spec on rv.
func protectFields(cfg *ProtectConfig, rv reflect.Value, spec sentinel.Metadata, namePrefix string) error {
	for _, field := range spec.Fields {
		if field.Tags[TagProtect] == "-" {
			continue
		}

		fv := rv.FieldByIndex(field.Index)
		if !fv.CanSet() {
			continue
		}

		fullName := field.Name
		if namePrefix != "" {
			fullName = namePrefix + "." + field.Name
		}

		// Handle nested structs
		if field.Kind == sentinel.KindStruct {
			if nested := scanNestedType(field.ReflectType); nested != nil {
				if err := protectFields(cfg, fv, *nested, fullName); err != nil {
					return err
				}
			}
			continue
		}

		// Handle pointer to struct
		if field.Kind == sentinel.KindPointer && field.ReflectType.Elem().Kind() == reflect.Struct {
			if fv.IsNil() {
				continue
			}
			if nested := scanNestedType(field.ReflectType.Elem()); nested != nil {
				if err := protectFields(cfg, fv.Elem(), *nested, fullName); err != nil {
					return err
				}
			}
			continue
		}

		if err := protectField(cfg, fv, fullName); err != nil {
			return err
		}
	}
	return nil
}

// protectField rewrites a string, []string or map[K]string field.
func protectField(cfg *ProtectConfig, fv reflect.Value, name string) error {
	protect := func(s string) (string, error) {
		out, err := cfg.Protect(s)
		if err != nil {
			return "", newTransformError(ErrEncrypt, "encrypt", name, err)
		}
		return out, nil
	}

	switch {
	case fv.Kind() == reflect.String:
		out, err := protect(fv.String())
		if err != nil {
			return err
		}
		fv.SetString(out)

	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		for i := 0; i < fv.Len(); i++ {
			out, err := protect(fv.Index(i).String())
			if err != nil {
				return err
			}
			fv.Index(i).SetString(out)
		}

	case fv.Kind() == reflect.Map && fv.Type().Elem().Kind() == reflect.String:
		if fv.IsNil() {
			return nil
		}
		keys := fv.MapKeys()
		for _, k := range keys {
			out, err := protect(fv.MapIndex(k).String())
			if err != nil {
				return err
			}
			fv.SetMapIndex(k, reflect.ValueOf(out).Convert(fv.Type().Elem()))
		}
	}
	return nil
}

// scanNestedType scans a nested struct type and returns its metadata.
func scanNestedType(rt reflect.Type) *sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		return &spec
	}

	if rt.Kind() != reflect.Struct {
		return nil
	}

	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        map[string]string{},
		}
		if v, ok := sf.Tag.Lookup(TagProtect); ok {
			fm.Tags[TagProtect] = v
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return &spec
}
