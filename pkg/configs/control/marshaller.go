package control

import (
	"os"

	"gopkg.in/yaml.v3"
)

// load the control-plane config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *ControlConfig, error:
//
//	When loading success, returns `(*ControlConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadControlConfig(filepath string) (*ControlConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (out *ControlConfig, err error) {
	var _out *ControlConfigMarshall
	err = yaml.Unmarshal(conf, &_out)
	if err != nil {
		return nil, err
	}
	out = TrySeal(_out)
	return out, nil
}
