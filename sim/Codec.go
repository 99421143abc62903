package sim

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Configurations are exchanged in protobuf text format. Repeated fields
// of concatenated documents are appended to each other when parsed, so
// independently serialized fragments can be joined into a single
// document without any enclosing syntax. Singular fields (the global
// options) may only appear in one fragment.

const schemaPackage = "shaclearn.sim"

var configDescriptor protoreflect.MessageDescriptor

func init() {
	fd, err := protodesc.NewFile(schema(), nil)
	if err != nil {
		panic(fmt.Sprintf("sim: could not build config schema: %v", err))
	}
	configDescriptor = fd.Messages().ByName("Config")
}

func field(name string, number int32, t descriptorpb.FieldDescriptorProto_Type,
	repeated bool, typeName string) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Type:   t.Enum(),
		Label:  label.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String("." + schemaPackage + "." + typeName)
	}
	return f
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

// schema returns the proto2 schema of the configuration text format
func schema() *descriptorpb.FileDescriptorProto {
	const (
		str = descriptorpb.FieldDescriptorProto_TYPE_STRING
		dbl = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
		bln = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		i32 = descriptorpb.FieldDescriptorProto_TYPE_INT32
		msg = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("shaclearn/sim/config.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Vector3",
				field("x", 1, dbl, false, ""),
				field("y", 2, dbl, false, ""),
				field("z", 3, dbl, false, ""),
			),
			message("Collider",
				field("shape", 1, str, false, ""),
				field("radius", 2, dbl, false, ""),
				field("length", 3, dbl, false, ""),
				field("half_size", 4, msg, false, "Vector3"),
				field("position", 5, msg, false, "Vector3"),
			),
			message("Body",
				field("name", 1, str, false, ""),
				field("mass", 2, dbl, false, ""),
				field("frozen", 3, bln, false, ""),
				field("colliders", 4, msg, true, "Collider"),
			),
			message("Limit",
				field("min", 1, dbl, false, ""),
				field("max", 2, dbl, false, ""),
			),
			message("Joint",
				field("name", 1, str, false, ""),
				field("parent", 2, str, false, ""),
				field("child", 3, str, false, ""),
				field("stiffness", 4, dbl, false, ""),
				field("parent_offset", 5, msg, false, "Vector3"),
				field("child_offset", 6, msg, false, "Vector3"),
				field("angle_limit", 7, msg, true, "Limit"),
			),
			message("Actuator",
				field("name", 1, str, false, ""),
				field("joint", 2, str, false, ""),
				field("strength", 3, dbl, false, ""),
			),
			message("CollidePair",
				field("first", 1, str, false, ""),
				field("second", 2, str, false, ""),
			),
			message("Config",
				field("bodies", 1, msg, true, "Body"),
				field("joints", 2, msg, true, "Joint"),
				field("actuators", 3, msg, true, "Actuator"),
				field("collide_include", 4, msg, true, "CollidePair"),
				field("dt", 5, dbl, false, ""),
				field("substeps", 6, i32, false, ""),
				field("friction", 7, dbl, false, ""),
				field("gravity", 8, msg, false, "Vector3"),
				field("angular_damping", 9, dbl, false, ""),
				field("baumgarte_erp", 10, dbl, false, ""),
				field("elasticity", 11, dbl, false, ""),
			),
		},
	}
}

// Marshal serializes a Config to its text form. The text is stable
// within one binary; prototext varies its whitespace between builds.
func Marshal(c *Config) (string, error) {
	out, err := prototext.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}.Marshal(toMessage(c).Interface())
	if err != nil {
		return "", fmt.Errorf("marshal: %v", err)
	}
	return string(out), nil
}

// Unmarshal parses the text form of a Config
func Unmarshal(text string) (*Config, error) {
	m := dynamicpb.NewMessage(configDescriptor)
	if err := prototext.Unmarshal([]byte(text), m); err != nil {
		return nil, fmt.Errorf("unmarshal: %v", err)
	}
	return fromMessage(m), nil
}

// Concat joins serialized fragments into a single document, preserving
// their order
func Concat(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		if f == "" {
			continue
		}
		b.WriteString(f)
		if !strings.HasSuffix(f, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func toMessage(c *Config) protoreflect.Message {
	m := dynamicpb.NewMessage(configDescriptor)

	for _, b := range c.Bodies {
		b := b
		appendElem(m, "bodies", func(e protoreflect.Message) {
			setString(e, "name", b.Name)
			setFloat(e, "mass", b.Mass)
			setBool(e, "frozen", b.Frozen)
			for _, col := range b.Colliders {
				col := col
				appendElem(e, "colliders", func(ce protoreflect.Message) {
					setString(ce, "shape", string(col.Shape))
					setFloat(ce, "radius", col.Radius)
					setFloat(ce, "length", col.Length)
					setVec(ce, "half_size", col.HalfSize)
					setVec(ce, "position", col.Position)
				})
			}
		})
	}
	for _, j := range c.Joints {
		j := j
		appendElem(m, "joints", func(e protoreflect.Message) {
			setString(e, "name", j.Name)
			setString(e, "parent", j.Parent)
			setString(e, "child", j.Child)
			setFloat(e, "stiffness", j.Stiffness)
			setVec(e, "parent_offset", j.ParentOffset)
			setVec(e, "child_offset", j.ChildOffset)
			for _, l := range j.AngleLimits {
				l := l
				appendElem(e, "angle_limit", func(le protoreflect.Message) {
					setFloat(le, "min", l.Min)
					setFloat(le, "max", l.Max)
				})
			}
		})
	}
	for _, a := range c.Actuators {
		a := a
		appendElem(m, "actuators", func(e protoreflect.Message) {
			setString(e, "name", a.Name)
			setString(e, "joint", a.Joint)
			setFloat(e, "strength", a.Strength)
		})
	}
	for _, p := range c.CollideInclude {
		p := p
		appendElem(m, "collide_include", func(e protoreflect.Message) {
			setString(e, "first", p.First)
			setString(e, "second", p.Second)
		})
	}

	o := c.Options
	setFloat(m, "dt", o.Dt)
	if o.Substeps != 0 {
		m.Set(fieldOf(m, "substeps"), protoreflect.ValueOfInt32(int32(o.Substeps)))
	}
	setFloat(m, "friction", o.Friction)
	if len(o.Gravity) == 3 {
		g := m.Mutable(fieldOf(m, "gravity")).Message()
		setFloat(g, "x", o.Gravity[0])
		setFloat(g, "y", o.Gravity[1])
		setFloat(g, "z", o.Gravity[2])
	}
	setFloat(m, "angular_damping", o.AngularDamping)
	setFloat(m, "baumgarte_erp", o.BaumgarteERP)
	setFloat(m, "elasticity", o.Elasticity)

	return m
}

func fromMessage(m protoreflect.Message) *Config {
	c := &Config{}

	eachElem(m, "bodies", func(e protoreflect.Message) {
		b := BodySpec{
			Name:   getString(e, "name"),
			Mass:   getFloat(e, "mass"),
			Frozen: e.Get(fieldOf(e, "frozen")).Bool(),
		}
		eachElem(e, "colliders", func(ce protoreflect.Message) {
			b.Colliders = append(b.Colliders, Collider{
				Shape:    Shape(getString(ce, "shape")),
				Radius:   getFloat(ce, "radius"),
				Length:   getFloat(ce, "length"),
				HalfSize: getVec(ce, "half_size"),
				Position: getVec(ce, "position"),
			})
		})
		c.Bodies = append(c.Bodies, b)
	})
	eachElem(m, "joints", func(e protoreflect.Message) {
		j := JointSpec{
			Name:         getString(e, "name"),
			Parent:       getString(e, "parent"),
			Child:        getString(e, "child"),
			Stiffness:    getFloat(e, "stiffness"),
			ParentOffset: getVec(e, "parent_offset"),
			ChildOffset:  getVec(e, "child_offset"),
		}
		eachElem(e, "angle_limit", func(le protoreflect.Message) {
			j.AngleLimits = append(j.AngleLimits, Limit{
				Min: getFloat(le, "min"),
				Max: getFloat(le, "max"),
			})
		})
		c.Joints = append(c.Joints, j)
	})
	eachElem(m, "actuators", func(e protoreflect.Message) {
		c.Actuators = append(c.Actuators, ActuatorSpec{
			Name:     getString(e, "name"),
			Joint:    getString(e, "joint"),
			Strength: getFloat(e, "strength"),
		})
	})
	eachElem(m, "collide_include", func(e protoreflect.Message) {
		c.CollideInclude = append(c.CollideInclude, CollidePair{
			First:  getString(e, "first"),
			Second: getString(e, "second"),
		})
	})

	c.Options = Options{
		Dt:             getFloat(m, "dt"),
		Substeps:       int(m.Get(fieldOf(m, "substeps")).Int()),
		Friction:       getFloat(m, "friction"),
		AngularDamping: getFloat(m, "angular_damping"),
		BaumgarteERP:   getFloat(m, "baumgarte_erp"),
		Elasticity:     getFloat(m, "elasticity"),
	}
	if m.Has(fieldOf(m, "gravity")) {
		g := getVec(m, "gravity")
		c.Options.Gravity = []float64{g.X, g.Y, g.Z}
	}
	return c
}

func fieldOf(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("sim: message %v has no field %q",
			m.Descriptor().FullName(), name))
	}
	return fd
}

func appendElem(m protoreflect.Message, name string,
	fill func(protoreflect.Message)) {
	list := m.Mutable(fieldOf(m, name)).List()
	elem := list.NewElement()
	fill(elem.Message())
	list.Append(elem)
}

func eachElem(m protoreflect.Message, name string,
	fn func(protoreflect.Message)) {
	list := m.Get(fieldOf(m, name)).List()
	for i := 0; i < list.Len(); i++ {
		fn(list.Get(i).Message())
	}
}

func setString(m protoreflect.Message, name, v string) {
	if v != "" {
		m.Set(fieldOf(m, name), protoreflect.ValueOfString(v))
	}
}

func setFloat(m protoreflect.Message, name string, v float64) {
	if v != 0 {
		m.Set(fieldOf(m, name), protoreflect.ValueOfFloat64(v))
	}
}

func setBool(m protoreflect.Message, name string, v bool) {
	if v {
		m.Set(fieldOf(m, name), protoreflect.ValueOfBool(v))
	}
}

func setVec(m protoreflect.Message, name string, v r3.Vec) {
	if v == (r3.Vec{}) {
		return
	}
	sub := m.Mutable(fieldOf(m, name)).Message()
	setFloat(sub, "x", v.X)
	setFloat(sub, "y", v.Y)
	setFloat(sub, "z", v.Z)
}

func getString(m protoreflect.Message, name string) string {
	return m.Get(fieldOf(m, name)).String()
}

func getFloat(m protoreflect.Message, name string) float64 {
	return m.Get(fieldOf(m, name)).Float()
}

func getVec(m protoreflect.Message, name string) r3.Vec {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return r3.Vec{}
	}
	sub := m.Get(fd).Message()
	return r3.Vec{
		X: getFloat(sub, "x"),
		Y: getFloat(sub, "y"),
		Z: getFloat(sub, "z"),
	}
}
