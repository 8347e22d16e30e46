package entities

// APIKey is the key-value configuration store for third-party provider
// credentials, looked up by logical name (e.g. "openai").
type APIKey struct {
	KeyName  string `json:"key_name" gorm:"column:key_name;primary_key;type:varchar(100)"`
	KeyValue string `json:"key_value" gorm:"column:key_value;type:text;not null"`
}

func (APIKey) TableName() string {
	return "api_keys"
}
