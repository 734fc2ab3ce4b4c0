package dpexport

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	iolist "dp-manager/internal/iolist/domain"
)

// XML namespaces of the exported package.
const (
	nsDevice    = "urn:BLUEONE:DEVICE_DATA_MAP"
	nsDMD       = "urn:BLUEONE:DATA_MODEL_DEFINITION"
	nsSDD       = "urn:ISO19848:SHIP_DATA_DEFINITION"
	nsTagNative = "urn:BLUEONE_TAGNATIVE_NAME_OBJECT"
	nsXSI       = "http://www.w3.org/2001/XMLSchema-instance"
	nsJSMEA     = "urn:BLUEONE_JSMEA_NAME_OBJECT"

	schemaLocation = "urn:BLUEONE_JSMEA_NAME_OBJECT jsmea_name_object.xsd " +
		"urn:ISO19848:SHIP_DATA_DEFINITION ship_data_definition.xsd " +
		"urn:BLUEONE:DATA_MODEL_DEFINITION blueone_data_model_definition.xsd " +
		"urn:BLUEONE:DEVICE_DATA_MAP blueone_device_data_map.xsd " +
		"urn:BLUEONE_JSMEA_NAME_OBJECT jsmea_name_object.xsd " +
		"urn:BLUEONE_TAGNATIVE_NAME_OBJECT tagnative_name_object.xsd"
)

const nmeaNamingRule = "blueone_tagnative"

type packageElem struct {
	XMLName        xml.Name        `xml:"sdd:Package"`
	NSDevice       string          `xml:"xmlns:device,attr"`
	NSDMD          string          `xml:"xmlns:dmd,attr"`
	NSSDD          string          `xml:"xmlns:sdd,attr"`
	NSTagNative    string          `xml:"xmlns:tn,attr"`
	NSXSI          string          `xml:"xmlns:xsi,attr"`
	NSJSMEA        string          `xml:"xmlns:jm,attr"`
	SchemaLocation string          `xml:"xsi:schemaLocation,attr"`
	Header         headerElem      `xml:"sdd:Header"`
	Channels       channelListElem `xml:"sdd:DataChannelList"`
}

type headerElem struct {
	ShipID            string            `xml:"sdd:ShipID"`
	DataChannelListID channelListIDElem `xml:"sdd:DataChannelListID"`
	Author            string            `xml:"sdd:Author"`
	DateCreated       string            `xml:"sdd:DateCreated"`
	ModelName         string            `xml:"dmd:Name"`
	ModelVersion      string            `xml:"dmd:Version"`
}

type channelListIDElem struct {
	ID        string `xml:"sdd:ID"`
	TimeStamp string `xml:"sdd:TimeStamp"`
}

type channelListElem struct {
	Channels []channelElem `xml:"sdd:DataChannel"`
}

type channelElem struct {
	ID       channelIDElem `xml:"sdd:DataChannelID"`
	Property propertyElem  `xml:"sdd:Property"`
}

type channelIDElem struct {
	LocalID    string          `xml:"sdd:LocalID"`
	NameObject *nameObjectElem `xml:"sdd:NameObject,omitempty"`
}

type nameObjectElem struct {
	NamingRule string `xml:"sdd:NamingRule"`
}

type propertyElem struct {
	ChannelKind    channelKindElem    `xml:"sdd:DataChannelType"`
	Format         formatElem         `xml:"sdd:Format"`
	Range          rangeElem          `xml:"sdd:Range"`
	Unit           unitElem           `xml:"sdd:Unit"`
	AlarmThreshold alarmThresholdElem `xml:"dmd:AlarmThreshold"`
	ChannelType    string             `xml:"dmd:ChannelType"`
	Direction      string             `xml:"dmd:Direction"`
	InoutType      string             `xml:"dmd:InoutType"`
	Scale          string             `xml:"dmd:Scale"`
	InstCode       string             `xml:"dmd:InstCode"`
	Description    string             `xml:"dmd:Description"`
	DeviceProperty devicePropertyElem `xml:"device:DeviceProperty"`
	SourceData     sourceDataElem     `xml:"dmd:SourceData"`
}

type channelKindElem struct {
	Type              string `xml:"sdd:Type"`
	UpdateCycle       string `xml:"sdd:UpdateCycle,omitempty"`
	CalculationPeriod string `xml:"sdd:CalculationPeriod,omitempty"`
}

type formatElem struct {
	Type string `xml:"sdd:Type"`
}

type rangeElem struct {
	High string `xml:"sdd:High"`
	Low  string `xml:"sdd:Low"`
}

type unitElem struct {
	UnitSymbol   string `xml:"sdd:UnitSymbol"`
	QuantityName string `xml:"sdd:QuantityName"`
}

type alarmThresholdElem struct {
	LowMinor  string `xml:"dmd:LowMinor"`
	LowMajor  string `xml:"dmd:LowMajor"`
	HighMinor string `xml:"dmd:HighMinor"`
	HighMajor string `xml:"dmd:HighMajor"`
}

type devicePropertyElem struct {
	ID          string      `xml:"device:ID"`
	InterfaceID string      `xml:"device:InterfaceID"`
	OriginTag   string      `xml:"device:OriginTag"`
	Tag         string      `xml:"device:Tag"`
	DataSet     dataSetElem `xml:"device:DataSet"`
}

type dataSetElem struct {
	MQTT *mqttElem `xml:"device:MQTT,omitempty"`
	NMEA *nmeaElem `xml:"device:NMEA0183,omitempty"`
}

type mqttElem struct {
	Name          string `xml:"name,attr"`
	MaximumLength string `xml:"maximumLength,attr"`
	Description   string `xml:"description,attr"`
}

type nmeaElem struct {
	Talker        string `xml:"talker,attr"`
	Sentence      string `xml:"sentence,attr"`
	Pos           string `xml:"pos,attr"`
	ParsingFormat string `xml:"parsingFormat,attr"`
	DirectionPos  string `xml:"directionPos,attr"`
	IsRepeatStart string `xml:"isRepeatStart,attr"`
	IsRepeatEnd   string `xml:"isRepeatEnd,attr"`
	Description   string `xml:"description,attr"`
}

type sourceDataElem struct {
	Columns []columnElem `xml:"dmd:Column"`
}

type columnElem struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Exporter renders stored headers into ship data definition packages.
type Exporter struct {
	profile Profile
}

// NewExporter constructs an exporter.
func NewExporter(profile Profile) (*Exporter, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Exporter{profile: profile}, nil
}

// FileName names an exported package after its header and export time.
func FileName(header *iolist.Header, now time.Time) string {
	return fmt.Sprintf("DP_%s_%s.xml", header.IMO, now.UTC().Format("20060102150405"))
}

// Build renders the package document. Every item becomes one data channel,
// in ascending item id order; the channel carries the item's complete raw
// column set so nothing from the source workbook is lost.
func (e *Exporter) Build(header *iolist.Header, items []*iolist.Item, devices []*iolist.Device, now time.Time) ([]byte, error) {
	if header == nil {
		return nil, iolist.ErrHeaderNotFound
	}
	timestamp := now.UTC().Format("2006-01-02T15:04:05.000") + "Z"

	protocols := make(map[string]iolist.Protocol, len(devices))
	for _, device := range devices {
		protocols[device.Name] = device.Protocol
	}

	sorted := make([]*iolist.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	pkg := packageElem{
		NSDevice:       nsDevice,
		NSDMD:          nsDMD,
		NSSDD:          nsSDD,
		NSTagNative:    nsTagNative,
		NSXSI:          nsXSI,
		NSJSMEA:        nsJSMEA,
		SchemaLocation: schemaLocation,
		Header: headerElem{
			ShipID: header.IMO,
			DataChannelListID: channelListIDElem{
				ID:        header.IMO,
				TimeStamp: timestamp,
			},
			Author:       e.profile.Author,
			DateCreated:  timestamp,
			ModelName:    e.profile.ModelName,
			ModelVersion: e.profile.ModelVersion,
		},
	}
	for _, item := range sorted {
		pkg.Channels.Channels = append(pkg.Channels.Channels, e.buildChannel(item, protocols))
	}

	payload, err := xml.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("dpexport: marshal package: %w", err)
	}
	return append([]byte(xml.Header), append(payload, '\n')...), nil
}

func (e *Exporter) buildChannel(item *iolist.Item, protocols map[string]iolist.Protocol) channelElem {
	resource := item.Raw.Get(iolist.ColumnResource)
	description := item.Raw.Get(iolist.ColumnDescription)
	if description == "" {
		description = item.Description
	}

	// Only the MQTT and NMEA shapes exist on the wire. Everything else,
	// including items whose Resource maps to no registered device, is
	// exported in the MQTT shape.
	nmea := protocols[resource] == iolist.ProtocolNMEA
	nmeaTag := firstNonEmpty(item.Raw.Get("OriginTag"), item.Raw.Get("NMEA Tag"))
	if nmea && nmeaTag == "" {
		nmea = false
	}

	namingRule := item.Raw.Get(iolist.ColumnRuleNaming)
	if namingRule == "" {
		namingRule = e.profile.DefaultNamingRule
	}
	localID := item.DataChannelID
	originTag := firstNonEmpty(item.Raw.Get(iolist.ColumnMQTTTag), item.IONo)
	interfaceID := firstNonEmpty(item.Raw.Get("InterfaceID"), resource)
	if nmea {
		originTag = nmeaTag
		localID = fmt.Sprintf("/%s/%s/%s/%s", nmeaNamingRule, resource, interfaceID, originTag)
		namingRule = nmeaNamingRule
	}

	channel := channelElem{ID: channelIDElem{LocalID: localID}}
	if namingRule != e.profile.DefaultNamingRule {
		channel.ID.NameObject = &nameObjectElem{NamingRule: namingRule}
	}

	measure := strings.ToLower(item.Raw.Get(iolist.ColumnMeasure))
	isAlarm := strings.HasPrefix(measure, "alarm")
	isStatus := measure == "status" || measure == "run" || measure == "use"

	property := propertyElem{
		Direction:   "RO",
		Scale:       formatScale(item.Raw.Get(iolist.ColumnCalculation)),
		Description: description,
	}

	switch {
	case isAlarm:
		property.ChannelKind = channelKindElem{Type: "Alert"}
		property.Format = formatElem{Type: "Alert"}
		property.ChannelType = "Alarm"
		if strings.EqualFold(item.Raw.Get("IOType"), "DO") {
			property.InoutType = "DO"
		} else {
			property.InoutType = "DI"
		}
	case isStatus:
		property.ChannelKind = channelKindElem{Type: "Status"}
		property.Format = formatElem{Type: "Status"}
	default:
		property.ChannelKind = channelKindElem{
			Type:              "Inst",
			UpdateCycle:       strconv.Itoa(e.profile.UpdateCycle),
			CalculationPeriod: strconv.Itoa(e.profile.CalculationPeriod),
		}
		property.Format = formatElem{Type: formatType(item.Raw.Get(iolist.ColumnDataType))}
	}

	if !nmea {
		if !isAlarm {
			property.ChannelType = "Data"
			property.InoutType = firstNonEmpty(item.Raw.Get("IOType"), "AI")
		}
		property.InstCode = firstNonEmpty(item.Raw.Get("Inst Code"), "Inst")
	}

	deviceProperty := devicePropertyElem{
		ID:          resource,
		InterfaceID: interfaceID,
		OriginTag:   originTag,
	}
	if nmea {
		deviceProperty.DataSet.NMEA = buildNMEASet(item, originTag, description)
	} else {
		deviceProperty.DataSet.MQTT = &mqttElem{
			Name:          originTag,
			MaximumLength: item.Raw.Get("Maximum Length"),
			Description:   description,
		}
	}
	property.DeviceProperty = deviceProperty

	for _, column := range item.Raw.Keys() {
		property.SourceData.Columns = append(property.SourceData.Columns, columnElem{
			Name:  column,
			Value: item.Raw.Get(column),
		})
	}

	channel.Property = property
	return channel
}

// buildNMEASet resolves the talker and sentence, preferring explicit
// columns and falling back to parsing the origin tag ("FAFIR/alarm" or
// "FA/FIR/alarm").
func buildNMEASet(item *iolist.Item, originTag, description string) *nmeaElem {
	talker := item.Raw.Get("NMEA Talker")
	sentence := item.Raw.Get("NMEA Sentence")
	if talker == "" || sentence == "" {
		parts := strings.Split(originTag, "/")
		if len(parts) >= 2 {
			if len(parts[0]) > 2 {
				talker = parts[0][:2]
				sentence = parts[0][2:]
			} else {
				talker = parts[0]
				sentence = parts[1]
			}
		}
	}
	return &nmeaElem{
		Talker:        talker,
		Sentence:      sentence,
		Pos:           firstNonEmpty(item.Raw.Get("NMEA Position"), "1"),
		ParsingFormat: item.Raw.Get("NMEA ParsingFormat"),
		DirectionPos:  item.Raw.Get("NMEA DirectionPos"),
		IsRepeatStart: item.Raw.Get("NMEA IsRepeatStart"),
		IsRepeatEnd:   item.Raw.Get("NMEA IsRepeatEnd"),
		Description:   description,
	}
}

// formatType maps workbook data types onto wire format types.
func formatType(dataType string) string {
	switch strings.ToUpper(strings.TrimSpace(dataType)) {
	case "INT", "INTEGER":
		return "Integer"
	case "STRING":
		return "String"
	case "BOOL", "DIG", "BOOLEAN":
		return "Boolean"
	default:
		return "Decimal"
	}
}

// formatScale parses the Calculation column as a scale factor, defaulting
// to 1 on anything unparsable.
func formatScale(value string) string {
	scale := 1.0
	if value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			scale = parsed
		}
	}
	return strconv.FormatFloat(scale, 'g', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
