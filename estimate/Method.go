package estimate

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/samuelfneumann/gorollout/trajectory"
)

// Type describes different types of return estimation methods that
// are available. Type is used to implement a basic type system of
// estimation methods.
type Type string

// Available estimation method types
const (
	MonteCarlo Type = "MonteCarlo"
	GAE        Type = "GAE"
	NStep      Type = "NStep"
)

// Targeter computes per-transition learning targets from a trajectory
// segment. The vS and vNext arguments hold predicted values for each
// transition's state and successor state; methods that do not use
// value predictions ignore them, and methods that do not produce
// advantages return nil for them.
type Targeter interface {
	Targets(seg *trajectory.Segment, vS, vNext []float64) (returns,
		advantages []float64, err error)
}

// Method wraps a Targeter together with the configuration that
// created it, so that estimation methods can be JSON serialized into
// configuration files.
type Method struct {
	targeter Targeter
	Type
	Config
}

// newMethod returns a new Method described by the given configuration
func newMethod(c Config) (*Method, error) {
	method := Method{Type: c.Type(), Config: c}

	targeter, err := method.Config.Create()
	if err != nil {
		return nil, fmt.Errorf("newMethod: could not create targeter: %w",
			err)
	}
	method.targeter = targeter

	return &method, nil
}

// Targets computes the learning targets of the wrapped Targeter
func (m *Method) Targets(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, []float64, error) {
	return m.targeter.Targets(seg, vS, vNext)
}

// String implements the fmt.Stringer interface
func (m *Method) String() string {
	return fmt.Sprintf("{%v Method: %v}", m.Type, m.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (m *Method) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(MonteCarlo): reflect.TypeOf(MonteCarloConfig{}),
			string(GAE):        reflect.TypeOf(GAEConfig{}),
			string(NStep):      reflect.TypeOf(NStepConfig{}),
		})
	if err != nil {
		return err
	}

	m.Type = typeName
	m.Config = config

	targeter, err := m.Config.Create()
	if err != nil {
		return fmt.Errorf("unmarshalJSON: could not create targeter: %w",
			err)
	}
	m.targeter = targeter

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalConfig: no field %v in "+
			"serialized data", typeJsonField)
	}

	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalConfig: no such estimation "+
			"method type %v", typeName)
	}
	value := reflect.New(ty).Interface().(Config)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a return estimation method configuration and can
// be used to create the Targeter it describes.
type Config interface {
	// Create returns the Targeter that the Config describes
	Create() (Targeter, error)

	// Type returns the type of estimation method that is created
	Type() Type
}
