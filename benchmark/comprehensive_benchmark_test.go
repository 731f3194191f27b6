package benchmark

import (
	"bytes"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/wirelite/wirelite"
	"github.com/wirelite/wirelite/schema"
	"github.com/wirelite/wirelite/wire"
	"github.com/wirelite/wirelite/wkt"
)

// Global test data and clients. Wirelite and dynamicpb work from the same
// runtime schema and decode the same payload bytes, so the numbers compare
// decode work rather than schema setup. dynamicpb is the natural baseline:
// like wirelite it needs no generated code.
var (
	// Simple payload (scalar fields only)
	simplePayload []byte
	simpleDynamic *dynamicpb.Message
	simpleData    map[string]interface{}

	// Complex payload (nested message, maps, packed and repeated fields)
	complexPayload []byte
	complexDynamic *dynamicpb.Message
	complexData    map[string]interface{}

	// Wirelite codec
	codec *wirelite.Wirelite

	deviceDescriptor protoreflect.MessageDescriptor

	// Timestamp fixtures shared by the well-known-type benchmarks
	tsWirelite *wkt.Timestamp
	tsProto    *timestamppb.Timestamp
	tsPayload  []byte

	// Varint fixtures shared by the low-level benchmarks
	varintValues  = []uint64{1, 150, 86942, 1 << 32, math.MaxUint64}
	varintPayload []byte
	varintBuf     []byte
)

// Values shared by both payload builders so the cross-checks compare
// identical content.
var (
	sampleValues = []int32{19, 22, 512, 70000, 3}
	groupValues  = []string{"edge", "battery-powered"}
	labelValues  = map[string]string{
		"env":  "prod",
		"team": "telemetry",
		"zone": "eu-central",
	}
	readingRows = []struct {
		metric  string
		value   float64
		takenAt int64
	}{
		{"temperature_c", 21.5, 1779876000},
		{"humidity_pct", 48.25, 1779876000},
		{"pressure_hpa", 1013.25, 1779876060},
	}
)

func init() {
	setupDescriptors()
	setupWireliteCodec()
	setupPayloads()
	setupMicroFixtures()
}

func setupDescriptors() {
	fileDesc := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("bench/device.proto"),
		Package: proto.String("bench"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Location"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("site", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("rack", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("position", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				},
			},
			{
				Name: proto.String("Reading"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("metric", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					scalarField("taken_at", 3, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				},
			},
			{
				Name: proto.String("Device"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
					scalarField("hostname", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("online", 3, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					messageField("location", 4, ".bench.Location"),
					repeatedField(messageField("labels", 5, ".bench.Device.LabelsEntry")),
					repeatedField(scalarField("samples", 6, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
					repeatedField(scalarField("groups", 7, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
					repeatedField(messageField("readings", 8, ".bench.Reading")),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					{
						Name: proto.String("LabelsEntry"),
						Field: []*descriptorpb.FieldDescriptorProto{
							scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
							scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
						},
						Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
					},
				},
			},
		},
	}

	files, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{fileDesc},
	})
	if err != nil {
		panic("Failed to build file descriptor: " + err.Error())
	}

	fd, err := files.FindFileByPath("bench/device.proto")
	if err != nil {
		panic("Failed to find file descriptor: " + err.Error())
	}
	deviceDescriptor = fd.Messages().ByName("Device")
}

func scalarField(name string, number int32, t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   t.Enum(),
	}
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	return f
}

func repeatedField(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func setupWireliteCodec() {
	codec = wirelite.New()

	if err := codec.Register(&schema.Message{
		Name: "Location",
		Fields: []*schema.Field{
			{Name: "site", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "rack", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "position", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}},
		},
	}); err != nil {
		panic("Failed to register Location schema: " + err.Error())
	}

	if err := codec.Register(&schema.Message{
		Name: "Reading",
		Fields: []*schema.Field{
			{Name: "metric", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "value", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeDouble}},
			{Name: "taken_at", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt64}},
		},
	}); err != nil {
		panic("Failed to register Reading schema: " + err.Error())
	}

	if err := codec.Register(&schema.Message{
		Name: "Device",
		Fields: []*schema.Field{
			{Name: "id", Number: 1, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeUint64}},
			{Name: "hostname", Number: 2, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "online", Number: 3, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBool}},
			{Name: "location", Number: 4, Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Location"}},
			{
				Name:   "labels",
				Number: 5,
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
					MapValue: &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
				},
			},
			{Name: "samples", Number: 6, Label: schema.LabelRepeated, Packed: true, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}},
			{Name: "groups", Number: 7, Label: schema.LabelRepeated, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
			{Name: "readings", Number: 8, Label: schema.LabelRepeated, Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Reading"}},
		},
	}); err != nil {
		panic("Failed to register Device schema: " + err.Error())
	}
}

func setupPayloads() {
	var err error

	simpleDynamic = dynamicpb.NewMessage(deviceDescriptor)
	fields := deviceDescriptor.Fields()
	simpleDynamic.Set(fields.ByName("id"), protoreflect.ValueOfUint64(9001))
	simpleDynamic.Set(fields.ByName("hostname"), protoreflect.ValueOfString("sensor-fra-07"))
	simpleDynamic.Set(fields.ByName("online"), protoreflect.ValueOfBool(true))

	simplePayload, err = proto.Marshal(simpleDynamic)
	if err != nil {
		panic("Failed to create simple payload: " + err.Error())
	}

	simpleData = map[string]interface{}{
		"id":       uint64(9001),
		"hostname": "sensor-fra-07",
		"online":   true,
	}

	complexDynamic = createComplexDynamic()
	complexPayload, err = proto.Marshal(complexDynamic)
	if err != nil {
		panic("Failed to create complex payload: " + err.Error())
	}

	complexData = createComplexData()
}

func createComplexDynamic() *dynamicpb.Message {
	msg := dynamicpb.NewMessage(deviceDescriptor)
	fields := deviceDescriptor.Fields()

	msg.Set(fields.ByName("id"), protoreflect.ValueOfUint64(9001))
	msg.Set(fields.ByName("hostname"), protoreflect.ValueOfString("sensor-fra-07"))
	msg.Set(fields.ByName("online"), protoreflect.ValueOfBool(true))

	loc := msg.Mutable(fields.ByName("location")).Message()
	locFields := loc.Descriptor().Fields()
	loc.Set(locFields.ByName("site"), protoreflect.ValueOfString("FRA-2"))
	loc.Set(locFields.ByName("rack"), protoreflect.ValueOfString("B14"))
	loc.Set(locFields.ByName("position"), protoreflect.ValueOfInt32(3))

	labels := msg.Mutable(fields.ByName("labels")).Map()
	for k, v := range labelValues {
		labels.Set(protoreflect.ValueOfString(k).MapKey(), protoreflect.ValueOfString(v))
	}

	samples := msg.Mutable(fields.ByName("samples")).List()
	for _, s := range sampleValues {
		samples.Append(protoreflect.ValueOfInt32(s))
	}

	groups := msg.Mutable(fields.ByName("groups")).List()
	for _, g := range groupValues {
		groups.Append(protoreflect.ValueOfString(g))
	}

	readings := msg.Mutable(fields.ByName("readings")).List()
	for _, row := range readingRows {
		elem := readings.AppendMutable().Message()
		elemFields := elem.Descriptor().Fields()
		elem.Set(elemFields.ByName("metric"), protoreflect.ValueOfString(row.metric))
		elem.Set(elemFields.ByName("value"), protoreflect.ValueOfFloat64(row.value))
		elem.Set(elemFields.ByName("taken_at"), protoreflect.ValueOfInt64(row.takenAt))
	}

	return msg
}

func createComplexData() map[string]interface{} {
	readings := make([]interface{}, 0, len(readingRows))
	for _, row := range readingRows {
		readings = append(readings, map[string]interface{}{
			"metric":   row.metric,
			"value":    row.value,
			"taken_at": row.takenAt,
		})
	}

	return map[string]interface{}{
		"id":       uint64(9001),
		"hostname": "sensor-fra-07",
		"online":   true,
		"location": map[string]interface{}{
			"site":     "FRA-2",
			"rack":     "B14",
			"position": int32(3),
		},
		"labels":   labelValues,
		"samples":  sampleValues,
		"groups":   groupValues,
		"readings": readings,
	}
}

func setupMicroFixtures() {
	var err error

	tsWirelite = &wkt.Timestamp{Seconds: 1779876600, Nanos: 123456700}
	tsProto = &timestamppb.Timestamp{Seconds: 1779876600, Nanos: 123456700}
	tsPayload, err = proto.Marshal(tsProto)
	if err != nil {
		panic("Failed to create timestamp payload: " + err.Error())
	}

	for _, v := range varintValues {
		varintPayload = wire.AppendUvarint(varintPayload, v)
	}
}

// ===== SIMPLE PAYLOAD BENCHMARKS =====

func BenchmarkSimpleUnmarshal_Wirelite(b *testing.B) {
	b.ReportMetric(float64(len(simplePayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		result, err := codec.Unmarshal(simplePayload, "Device")
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkSimpleUnmarshal_DynamicPB(b *testing.B) {
	b.ReportMetric(float64(len(simplePayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		message := dynamicpb.NewMessage(deviceDescriptor)
		if err := proto.Unmarshal(simplePayload, message); err != nil {
			b.Fatal(err)
		}
		_ = message
	}
}

func BenchmarkSimpleMarshal_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		out, err := codec.Marshal(simpleData, "Device")
		if err != nil {
			b.Fatal(err)
		}
		_ = out
	}
}

func BenchmarkSimpleMarshal_DynamicPB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		out, err := proto.Marshal(simpleDynamic)
		if err != nil {
			b.Fatal(err)
		}
		_ = out
	}
}

// ===== COMPLEX PAYLOAD BENCHMARKS =====

func BenchmarkComplexUnmarshal_Wirelite(b *testing.B) {
	b.ReportMetric(float64(len(complexPayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		result, err := codec.Unmarshal(complexPayload, "Device")
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkComplexUnmarshal_DynamicPB(b *testing.B) {
	b.ReportMetric(float64(len(complexPayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		message := dynamicpb.NewMessage(deviceDescriptor)
		if err := proto.Unmarshal(complexPayload, message); err != nil {
			b.Fatal(err)
		}
		_ = message
	}
}

func BenchmarkComplexMarshal_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		out, err := codec.Marshal(complexData, "Device")
		if err != nil {
			b.Fatal(err)
		}
		_ = out
	}
}

func BenchmarkComplexMarshal_DynamicPB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		out, err := proto.Marshal(complexDynamic)
		if err != nil {
			b.Fatal(err)
		}
		_ = out
	}
}

// ===== SCHEMALESS SCAN BENCHMARKS =====

func BenchmarkRawScan_Wirelite(b *testing.B) {
	b.ReportMetric(float64(len(complexPayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		values, err := codec.Parse(complexPayload)
		if err != nil {
			b.Fatal(err)
		}
		_ = values
	}
}

func BenchmarkRawScan_Protowire(b *testing.B) {
	b.ReportMetric(float64(len(complexPayload)), "payload_bytes")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rest := complexPayload
		for len(rest) > 0 {
			_, _, n := protowire.ConsumeField(rest)
			if n < 0 {
				b.Fatal(protowire.ParseError(n))
			}
			rest = rest[n:]
		}
	}
}

// ===== WELL-KNOWN TYPE BENCHMARKS =====

func BenchmarkTimestampMarshal_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		varintBuf = tsWirelite.MarshalWire()
	}
}

func BenchmarkTimestampMarshal_Protobuf(b *testing.B) {
	for i := 0; i < b.N; i++ {
		out, err := proto.Marshal(tsProto)
		if err != nil {
			b.Fatal(err)
		}
		varintBuf = out
	}
}

func BenchmarkTimestampUnmarshal_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var ts wkt.Timestamp
		if err := ts.UnmarshalWire(tsPayload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTimestampUnmarshal_Protobuf(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var ts timestamppb.Timestamp
		if err := proto.Unmarshal(tsPayload, &ts); err != nil {
			b.Fatal(err)
		}
	}
}

// ===== VARINT BENCHMARKS =====

func BenchmarkVarintAppend_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		varintBuf = varintBuf[:0]
		for _, v := range varintValues {
			varintBuf = wire.AppendUvarint(varintBuf, v)
		}
	}
}

func BenchmarkVarintAppend_Protowire(b *testing.B) {
	for i := 0; i < b.N; i++ {
		varintBuf = varintBuf[:0]
		for _, v := range varintValues {
			varintBuf = protowire.AppendVarint(varintBuf, v)
		}
	}
}

func BenchmarkVarintDecode_Wirelite(b *testing.B) {
	for i := 0; i < b.N; i++ {
		d := wire.NewDecoder(varintPayload)
		for range varintValues {
			if _, err := d.DecodeVarint(); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkVarintDecode_Protowire(b *testing.B) {
	for i := 0; i < b.N; i++ {
		rest := varintPayload
		for range varintValues {
			_, n := protowire.ConsumeVarint(rest)
			if n < 0 {
				b.Fatal(protowire.ParseError(n))
			}
			rest = rest[n:]
		}
	}
}

// ===== VERIFICATION TESTS =====

func TestBenchmarkVerification(t *testing.T) {
	t.Logf("📦 Simple payload: %d bytes", len(simplePayload))
	t.Logf("📦 Complex payload: %d bytes", len(complexPayload))

	// protobuf-go bytes through wirelite
	decoded, err := codec.Unmarshal(complexPayload, "Device")
	if err != nil {
		t.Fatalf("Wirelite failed to decode protobuf-go payload: %v", err)
	}
	if decoded["hostname"] != "sensor-fra-07" {
		t.Errorf("hostname = %v, want sensor-fra-07", decoded["hostname"])
	}
	labels, ok := decoded["labels"].(map[interface{}]interface{})
	if !ok || len(labels) != len(labelValues) {
		t.Errorf("labels = %v, want %d entries", decoded["labels"], len(labelValues))
	} else if labels["env"] != "prod" {
		t.Errorf("labels[env] = %v, want prod", labels["env"])
	}
	samples, ok := decoded["samples"].([]interface{})
	if !ok || len(samples) != len(sampleValues) {
		t.Errorf("samples = %v, want %d elements", decoded["samples"], len(sampleValues))
	} else if samples[0] != sampleValues[0] {
		t.Errorf("samples[0] = %v, want %v", samples[0], sampleValues[0])
	}
	readings, ok := decoded["readings"].([]interface{})
	if !ok || len(readings) != len(readingRows) {
		t.Errorf("readings = %v, want %d elements", decoded["readings"], len(readingRows))
	}
	t.Logf("✅ Wirelite decoded %d fields from protobuf-go bytes", len(decoded))

	// wirelite bytes through protobuf-go
	encoded, err := codec.Marshal(complexData, "Device")
	if err != nil {
		t.Fatalf("Wirelite failed to encode: %v", err)
	}
	roundTrip := dynamicpb.NewMessage(deviceDescriptor)
	if err := proto.Unmarshal(encoded, roundTrip); err != nil {
		t.Fatalf("protobuf-go failed to decode wirelite payload: %v", err)
	}
	if !proto.Equal(complexDynamic, roundTrip) {
		t.Errorf("wirelite encoding diverges from protobuf-go content")
	}
	t.Logf("✅ protobuf-go decoded wirelite bytes (%d bytes, equal content)", len(encoded))
}

func TestTimestampWireAgreement(t *testing.T) {
	ours := tsWirelite.MarshalWire()
	if !bytes.Equal(ours, tsPayload) {
		t.Fatalf("timestamp bytes differ:\nwirelite: %x\nprotobuf: %x", ours, tsPayload)
	}

	var ts wkt.Timestamp
	if err := ts.UnmarshalWire(tsPayload); err != nil {
		t.Fatal(err)
	}
	if ts.Seconds != tsProto.Seconds || ts.Nanos != tsProto.Nanos {
		t.Errorf("decoded %d.%09d, want %d.%09d", ts.Seconds, ts.Nanos, tsProto.Seconds, tsProto.Nanos)
	}
}

// BenchmarkCompare_1K runs allocation comparisons with 1000 iterations per
// sample. The numbers put the map-based decode path next to dynamicpb for
// both payload shapes.
func BenchmarkCompare_1K(b *testing.B) {
	const N = 1000
	b.Logf("Running each decode %d times\n", N)

	b.Log("\n--- SIMPLE PAYLOAD ---")

	b.StartTimer()
	allocs := testing.AllocsPerRun(N, func() {
		if _, err := codec.Unmarshal(simplePayload, "Device"); err != nil {
			b.Fatal(err)
		}
	})
	b.StopTimer()
	b.Logf("Wirelite.Unmarshal: %d allocs/op", int(allocs))

	b.StartTimer()
	allocs = testing.AllocsPerRun(N, func() {
		message := dynamicpb.NewMessage(deviceDescriptor)
		if err := proto.Unmarshal(simplePayload, message); err != nil {
			b.Fatal(err)
		}
	})
	b.StopTimer()
	b.Logf("DynamicPB Unmarshal: %d allocs/op", int(allocs))

	b.Log("\n--- COMPLEX PAYLOAD ---")

	b.StartTimer()
	allocs = testing.AllocsPerRun(N, func() {
		if _, err := codec.Unmarshal(complexPayload, "Device"); err != nil {
			b.Fatal(err)
		}
	})
	b.StopTimer()
	b.Logf("Wirelite.Unmarshal: %d allocs/op", int(allocs))

	b.StartTimer()
	allocs = testing.AllocsPerRun(N, func() {
		message := dynamicpb.NewMessage(deviceDescriptor)
		if err := proto.Unmarshal(complexPayload, message); err != nil {
			b.Fatal(err)
		}
	})
	b.StopTimer()
	b.Logf("DynamicPB Unmarshal: %d allocs/op", int(allocs))
}
