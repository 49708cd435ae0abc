package i18n

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Parser decodes the content of a message file.
// The top level must be an object.
type Parser func(data []byte) (MessageMap, error)

// defaultParsers maps lower-case file extensions to their parser.
func defaultParsers() map[string]Parser {
	return map[string]Parser{
		".json": ParseJSON,
		".yaml": ParseYAML,
		".yml":  ParseYAML,
		".toml": ParseTOML,
	}
}

// ParseJSON decodes a JSON message file.
func ParseJSON(data []byte) (MessageMap, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidMessages)
	}

	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidMessages)
	}
	return fromJSON(result, "")
}

func fromJSON(obj gjson.Result, prefix string) (MessageMap, error) {
	messages := make(MessageMap)

	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		path := joinPath(prefix, key.String())
		switch value.Type {
		case gjson.String:
			messages[key.String()] = value.String()
		case gjson.Number, gjson.True, gjson.False:
			messages[key.String()] = value.Raw
		case gjson.Null:
		case gjson.JSON:
			if !value.IsObject() {
				err = fmt.Errorf("%w: %s is an array", ErrInvalidMessages, path)
				return false
			}
			var nested MessageMap
			if nested, err = fromJSON(value, path); err != nil {
				return false
			}
			messages[key.String()] = nested
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ParseYAML decodes a YAML message file.
func ParseYAML(data []byte) (MessageMap, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessages, err)
	}
	return fromMap(raw, "")
}

// ParseTOML decodes a TOML message file. Tables become nested maps.
func ParseTOML(data []byte) (MessageMap, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessages, err)
	}
	return fromMap(raw, "")
}

// fromMap converts decoded YAML/TOML into a MessageMap. Scalars other than
// strings are kept as their text form; lists are rejected.
func fromMap(raw map[string]any, prefix string) (MessageMap, error) {
	messages := make(MessageMap, len(raw))
	for key, value := range raw {
		path := joinPath(prefix, key)
		switch v := value.(type) {
		case nil:
		case string:
			messages[key] = v
		case map[string]any:
			nested, err := fromMap(v, path)
			if err != nil {
				return nil, err
			}
			messages[key] = nested
		case map[any]any:
			converted := make(map[string]any, len(v))
			for k, val := range v {
				converted[fmt.Sprint(k)] = val
			}
			nested, err := fromMap(converted, path)
			if err != nil {
				return nil, err
			}
			messages[key] = nested
		case []any, []map[string]any:
			return nil, fmt.Errorf("%w: %s is a list", ErrInvalidMessages, path)
		default:
			messages[key] = fmt.Sprint(v)
		}
	}
	return messages, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// parserFor returns the parser registered for name's extension.
func parserFor(parsers map[string]Parser, name string) (Parser, error) {
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = strings.ToLower(name[i:])
	}
	p, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return p, nil
}
