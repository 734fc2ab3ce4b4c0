package http

import (
	"encoding/json"
	"time"

	iolist "dp-manager/internal/iolist/domain"
)

type headerDTO struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	HullNo    string `json:"hull_no"`
	IMO       string `json:"imo"`
	DateKey   string `json:"date_key"`
	FileName  string `json:"file_name"`
	ItemCount int    `json:"item_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toHeaderDTO(header *iolist.Header) headerDTO {
	return headerDTO{
		ID:        header.ID,
		UUID:      header.UUID,
		HullNo:    header.HullNo,
		IMO:       header.IMO,
		DateKey:   header.DateKey,
		FileName:  header.FileName,
		ItemCount: header.ItemCount,
		CreatedAt: header.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: header.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type itemDTO struct {
	ID                       int64           `json:"id"`
	HeaderID                 int64           `json:"header_id"`
	RawData                  json.RawMessage `json:"raw_data"`
	IONo                     string          `json:"io_no"`
	IOName                   string          `json:"io_name"`
	IOType                   string          `json:"io_type"`
	Description              string          `json:"description"`
	Remarks                  string          `json:"remarks"`
	DataChannelID            string          `json:"data_channel_id"`
	IsDuplicateDataChannelID bool            `json:"is_duplicate_data_channel_id"`
	IsDuplicateDescription   bool            `json:"is_duplicate_description"`
	IsDuplicateMQTTTag       bool            `json:"is_duplicate_mqtt_tag"`
	HasMissingRequired       bool            `json:"has_missing_required"`
	CreatedAt                string          `json:"created_at"`
	UpdatedAt                string          `json:"updated_at"`
}

func toItemDTO(item *iolist.Item) (itemDTO, error) {
	raw, err := item.Raw.MarshalJSON()
	if err != nil {
		return itemDTO{}, err
	}
	return itemDTO{
		ID:                       item.ID,
		HeaderID:                 item.HeaderID,
		RawData:                  raw,
		IONo:                     item.IONo,
		IOName:                   item.IOName,
		IOType:                   item.IOType,
		Description:              item.Description,
		Remarks:                  item.Remarks,
		DataChannelID:            item.DataChannelID,
		IsDuplicateDataChannelID: item.IsDuplicateDataChannelID,
		IsDuplicateDescription:   item.IsDuplicateDescription,
		IsDuplicateMQTTTag:       item.IsDuplicateMQTTTag,
		HasMissingRequired:       item.HasMissingRequired,
		CreatedAt:                item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                item.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func toItemDTOs(items []*iolist.Item) ([]itemDTO, error) {
	result := make([]itemDTO, 0, len(items))
	for _, item := range items {
		dto, err := toItemDTO(item)
		if err != nil {
			return nil, err
		}
		result = append(result, dto)
	}
	return result, nil
}

type deviceDTO struct {
	ID       int64  `json:"id"`
	HeaderID int64  `json:"header_id"`
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
}

func toDeviceDTO(device *iolist.Device) deviceDTO {
	return deviceDTO{
		ID:       device.ID,
		HeaderID: device.HeaderID,
		Name:     device.Name,
		Protocol: string(device.Protocol),
	}
}

type uploadResponse struct {
	Header      headerDTO `json:"header"`
	DeviceCount int       `json:"device_count"`
}

type itemRequest struct {
	RawData json.RawMessage `json:"raw_data"`
}

func (req itemRequest) rowData() (iolist.RowData, error) {
	return iolist.ParseRowData(req.RawData)
}

type deviceRequest struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
}

type headerListResponse struct {
	Headers []headerDTO `json:"headers"`
}

type itemListResponse struct {
	Items []itemDTO `json:"items"`
}

type deviceListResponse struct {
	Devices []deviceDTO `json:"devices"`
}
