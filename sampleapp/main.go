package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wirelite/wirelite"
	"github.com/wirelite/wirelite/schema"
	"github.com/wirelite/wirelite/wkt"
)

func main() {
	codec := wirelite.New()
	registerSchemas(codec)

	fmt.Println("🚀 Wirelite Sample App - Schema-Driven Protobuf Without Codegen")
	fmt.Println(strings.Repeat("=", 70))

	demoRoundTrip(codec)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("🎯 Wrapper Fields - Absent vs Zero:")
	fmt.Println(strings.Repeat("=", 70))
	demoWrapperPresence(codec)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("🔍 Schema-less Parsing:")
	fmt.Println(strings.Repeat("=", 70))
	demoParse(codec)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("🧩 Struct Binding:")
	fmt.Println(strings.Repeat("=", 70))
	demoStructBinding(codec)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("🕐 Well-Known Types:")
	fmt.Println(strings.Repeat("=", 70))
	demoWellKnownTypes()

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("✅ All demos complete")
	fmt.Println(strings.Repeat("=", 70))
}

// registerSchemas defines the telemetry domain: a Device with nested
// messages, enums, maps, packed fields, wrappers and a oneof.
func registerSchemas(codec *wirelite.Wirelite) {
	err := codec.RegisterEnum(&schema.Enum{
		Name: "DeviceKind",
		Values: []*schema.EnumValue{
			{Name: "DEVICE_UNKNOWN", Number: 0},
			{Name: "DEVICE_SENSOR", Number: 1},
			{Name: "DEVICE_GATEWAY", Number: 2},
			{Name: "DEVICE_CAMERA", Number: 3},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register DeviceKind: %v", err)
	}

	err = codec.Register(&schema.Message{
		Name: "Location",
		Fields: []*schema.Field{
			{Name: "site", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "rack", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "position", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register Location: %v", err)
	}

	err = codec.Register(&schema.Message{
		Name: "Reading",
		Fields: []*schema.Field{
			{Name: "metric", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "value", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeDouble}},
			{Name: "taken_at", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt64}},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register Reading: %v", err)
	}

	err = codec.Register(&schema.Message{
		Name: "Device",
		Fields: []*schema.Field{
			{Name: "id", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeUint64}},
			{Name: "hostname", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "online", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBool}},
			{Name: "kind", Number: 4, Type: schema.FieldType{Kind: schema.KindEnum, EnumType: "DeviceKind"}},
			{
				Name:   "labels",
				Number: 5,
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
					MapValue: &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
				},
			},
			{
				Name:   "gauges",
				Number: 6,
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
					MapValue: &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeDouble},
				},
			},
			{
				Name:   "port_names",
				Number: 7,
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32},
					MapValue: &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
				},
			},
			{Name: "location", Number: 8, Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Location"}},
			{Name: "samples", Number: 9, Label: schema.LabelRepeated, Packed: true, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}},
			{Name: "groups", Number: 10, Label: schema.LabelRepeated, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "readings", Number: 11, Label: schema.LabelRepeated, Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Reading"}},
			{Name: "firmware", Number: 12, Type: schema.FieldType{Kind: schema.KindWrapper, WrapperType: schema.WrapperStringValue}},
			{Name: "battery", Number: 13, Type: schema.FieldType{Kind: schema.KindWrapper, WrapperType: schema.WrapperDoubleValue}},
			{Name: "last_seen", Number: 14, Type: schema.FieldType{Kind: schema.KindWrapper, WrapperType: schema.WrapperInt64Value}},
		},
		OneofGroups: []*schema.Oneof{
			{
				Name: "endpoint",
				Fields: []*schema.Field{
					{Name: "ip", Number: 15, OneofIndex: 0, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
					{Name: "serial_port", Number: 16, OneofIndex: 0, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
				},
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register Device: %v", err)
	}
}

func demoRoundTrip(codec *wirelite.Wirelite) {
	device := map[string]interface{}{
		"id":       uint64(7001),
		"hostname": "sensor-fra-07",
		"online":   true,
		"kind":     "DEVICE_SENSOR",

		"labels": map[string]string{
			"env":    "prod",
			"region": "eu-central",
			"team":   "platform",
		},
		"gauges": map[string]float64{
			"temperature_c": 21.4,
			"humidity_pct":  58.0,
		},
		"port_names": map[int32]string{
			1: "uplink",
			2: "console",
		},

		"location": map[string]interface{}{
			"site":     "FRA-2",
			"rack":     "B14",
			"position": int32(22),
		},

		"samples": []int32{3, 270, 86942},
		"groups":  []string{"climate", "rollout-canary"},

		"readings": []map[string]interface{}{
			{"metric": "temperature_c", "value": 21.4, "taken_at": int64(1756000000)},
			{"metric": "temperature_c", "value": 21.9, "taken_at": int64(1756000060)},
		},

		// Wrapper fields: firmware and battery set, last_seen omitted.
		"firmware": "v2.4.1",
		"battery":  87.5,

		// oneof endpoint: this device reports over IP.
		"ip": "10.40.7.12",
	}

	encoded, err := codec.Marshal(device, "Device")
	if err != nil {
		log.Fatalf("Failed to marshal device: %v", err)
	}
	fmt.Printf("\n📦 Encoded device: %d bytes\n", len(encoded))

	decoded, err := codec.Unmarshal(encoded, "Device")
	if err != nil {
		log.Fatalf("Failed to unmarshal device: %v", err)
	}

	fmt.Printf("Device %v (%v), kind %v\n", decoded["hostname"], decoded["id"], decoded["kind"])
	loc := decoded["location"].(map[string]interface{})
	fmt.Printf("Location: site %v rack %v position %v\n", loc["site"], loc["rack"], loc["position"])
	fmt.Printf("Samples: %v\n", decoded["samples"])
	fmt.Printf("Readings: %d, labels: %d, gauges: %d\n",
		len(decoded["readings"].([]interface{})),
		len(decoded["labels"].(map[interface{}]interface{})),
		len(decoded["gauges"].(map[interface{}]interface{})))
	fmt.Printf("Endpoint ip: %v (serial_port present: %v)\n", decoded["ip"], hasKey(decoded, "serial_port"))
}

func demoWrapperPresence(codec *wirelite.Wirelite) {
	// Same device, three wrapper states: set, omitted, explicit zero.
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"id":       uint64(7002),
			"hostname": "gw-fra-01",
			"kind":     "DEVICE_GATEWAY",
		}
	}

	withValue := base()
	withValue["battery"] = 87.5

	omitted := base()

	explicitZero := base()
	explicitZero["battery"] = 0.0

	for _, tc := range []struct {
		label  string
		device map[string]interface{}
	}{
		{"battery set to 87.5", withValue},
		{"battery omitted", omitted},
		{"battery explicitly 0.0", explicitZero},
	} {
		encoded, err := codec.Marshal(tc.device, "Device")
		if err != nil {
			log.Fatalf("Failed to marshal (%s): %v", tc.label, err)
		}
		decoded, err := codec.Unmarshal(encoded, "Device")
		if err != nil {
			log.Fatalf("Failed to unmarshal (%s): %v", tc.label, err)
		}

		value, present := decoded["battery"]
		fmt.Printf("%-24s -> %d bytes, battery present: %-5v", tc.label, len(encoded), present)
		if present {
			fmt.Printf(", value: %v", value)
		}
		fmt.Println()
	}
	fmt.Println("\n💡 Wrappers keep presence: an absent field costs no bytes and stays")
	fmt.Println("   out of the decoded map, while an explicit zero is encoded.")
}

func demoParse(codec *wirelite.Wirelite) {
	encoded, err := codec.Marshal(map[string]interface{}{
		"id":       uint64(7003),
		"hostname": "cam-fra-03",
		"online":   true,
	}, "Device")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}

	values, err := codec.Parse(encoded)
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}

	fmt.Println("\nRaw fields without a schema:")
	for _, v := range values {
		fmt.Printf("  field %d (%s): %v\n", v.FieldNumber, v.WireType, v.Data)
	}
}

func demoStructBinding(codec *wirelite.Wirelite) {
	encoded, err := codec.Marshal(map[string]interface{}{
		"id":       uint64(7004),
		"hostname": "sensor-ams-11",
		"online":   true,
		"kind":     "DEVICE_SENSOR",
		"location": map[string]interface{}{
			"site": "AMS-1", "rack": "C02", "position": int32(4),
		},
		"groups":  []string{"climate"},
		"samples": []int32{12, 14, 13},
		"labels":  map[string]string{"env": "prod"},
	}, "Device")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}

	type Location struct {
		Site     string
		Rack     string
		Position int32
	}
	type Device struct {
		ID       uint64
		Hostname string
		Online   bool
		Kind     string
		Location Location
		Groups   []string
		Samples  []int32
		Labels   map[string]string
	}

	var device Device
	if err := codec.UnmarshalToStruct(encoded, "Device", &device); err != nil {
		log.Fatalf("Failed to bind struct: %v", err)
	}
	fmt.Printf("\nBound struct: %+v\n", device)

	graph := codec.TypeGraph("Device")
	fmt.Printf("Device reaches %d message types: %v (recursive: %v)\n",
		len(graph.Types()), graph.Types(), graph.Recursive())
}

func demoWellKnownTypes() {
	ts := wkt.NewTimestamp(time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC))
	wireBytes := ts.MarshalWire()
	text, err := ts.Format()
	if err != nil {
		log.Fatalf("Failed to format timestamp: %v", err)
	}
	fmt.Printf("\nTimestamp %s -> %d wire bytes\n", text, len(wireBytes))

	var back wkt.Timestamp
	if err := back.UnmarshalWire(wireBytes); err != nil {
		log.Fatalf("Failed to decode timestamp: %v", err)
	}
	fmt.Printf("Round trip: seconds=%d nanos=%d\n", back.Seconds, back.Nanos)

	parsed, err := wkt.ParseTimestamp("2026-08-23T10:30:00.5Z")
	if err != nil {
		log.Fatalf("Failed to parse timestamp: %v", err)
	}
	fmt.Printf("Parsed text form: seconds=%d nanos=%d\n", parsed.Seconds, parsed.Nanos)

	d := wkt.NewDuration(90*time.Minute + 30*time.Second)
	dText, err := d.Format()
	if err != nil {
		log.Fatalf("Failed to format duration: %v", err)
	}
	fmt.Printf("Duration %v -> %s on the wire (%d bytes)\n", d.AsDuration(), dText, len(d.MarshalWire()))
}

func hasKey(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}
