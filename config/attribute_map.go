package config

import (
	"github.com/go-viper/mapstructure/v2"
)

// AttributeMap is a free form set of component specific settings.
type AttributeMap map[string]interface{}

// Decode decodes the attributes into result, a pointer to a struct with json tags. Unknown
// attribute names are an error.
func (am AttributeMap) Decode(result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           result,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(am))
}
