// Package configbinder decodes loosely typed configuration maps into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes properties into target, a pointer to a struct tagged with `yaml`.
// Strings are converted to numbers and booleans where the target field requires it.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to %s: %w", targetType.Name(), err)
	}
	return nil
}

// BindNamed decodes the entry name of a map of sections (e.g. the "storage" block) into target.
func BindNamed(sections map[string]interface{}, name string, target interface{}) error {
	raw, ok := sections[name]
	if !ok {
		return fmt.Errorf("no configuration found for '%s'", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("configuration for '%s' is %T, expected a mapping", name, raw)
	}
	return BindProperties(props, target)
}
