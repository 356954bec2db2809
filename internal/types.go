package internal

import "encoding/json"

type ItemType string

const (
	ItemWeapon    ItemType = "weapon"
	ItemArmor     ItemType = "armor"
	ItemShield    ItemType = "shield"
	ItemContainer ItemType = "container"
	ItemJewelry   ItemType = "jewelry"
	ItemNone      ItemType = ""
)

// FlexString decodes a JSON string or number into a string. Shop and item ids
// show up as both depending on the exporter version.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Records holds item records exactly as exported. Entries are not guaranteed
// to be objects; the processor drops the ones that are not. A value that is
// not an array decodes as no records.
type Records []any

func (r *Records) UnmarshalJSON(b []byte) error {
	var arr []any
	if err := json.Unmarshal(b, &arr); err != nil {
		*r = nil
		return nil
	}
	*r = arr
	return nil
}

// SignLines accepts a list of lines or a single string. Non-string entries
// are ignored.
type SignLines []string

func (s *SignLines) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = nil
	switch t := v.(type) {
	case string:
		*s = SignLines{t}
	case []any:
		for _, line := range t {
			if str, ok := line.(string); ok {
				*s = append(*s, str)
			}
		}
	}
	return nil
}

type Enhancive struct {
	Ability string `json:"ability"`
	Boost   int    `json:"boost"`
	Level   string `json:"level,omitempty"`
}

type GemstoneProperty struct {
	Name        string `json:"name"`
	Rarity      string `json:"rarity"`
	Mnemonic    string `json:"mnemonic"`
	Description string `json:"description"`
	Activated   bool   `json:"activated,omitempty"`
}

type RawDetails struct {
	Cost               *int
	Enchant            *int
	Material           string
	Weight             string
	Raw                []string
	Tags               []string
	Enhancives         []Enhancive
	GemstoneProperties []GemstoneProperty
	GemstoneBoundTo    string
	Worn               string
	Skill              string
}

type RawItem struct {
	ID           string
	Name         string
	Details      RawDetails
	AddedDate    string
	RemovedDate  string
	LastSeenShop string
	Town         string
}

type Room struct {
	Title  string    `json:"room_title"`
	Branch string    `json:"branch"`
	Sign   SignLines `json:"sign"`
	Items  Records   `json:"items"`
}

type Shop struct {
	ID       FlexString `json:"id"`
	Preamble string     `json:"preamble"`
	Rooms    []Room     `json:"inv"`
}

type Snapshot struct {
	Town         string  `json:"town"`
	CreatedAt    string  `json:"created_at"`
	Shops        []Shop  `json:"shops"`
	RemovedItems Records `json:"removed_items"`
}

// RemovedFile is the optional standalone removed-items payload keyed by town.
// A non-nil value, even an empty one, means the file was present.
type RemovedFile map[string]Records

type ShopLocation struct {
	MapID    string `json:"map_id"`
	Exterior string `json:"exterior,omitempty"`
}

type NormalizedItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Town         string `json:"town"`
	ShopID       string `json:"shopId"`
	ShopName     string `json:"shopName"`
	ShopLocation string `json:"shopLocation,omitempty"`
	ShopSign     string `json:"shopSign,omitempty"`
	Room         string `json:"room"`
	RoomSign     string `json:"roomSign,omitempty"`
	Branch       string `json:"branch,omitempty"`

	Price   *int `json:"price"`
	Enchant *int `json:"enchant"`

	Material string `json:"material,omitempty"`
	Weight   string `json:"weight,omitempty"`

	ItemType      ItemType `json:"itemType,omitempty"`
	WeaponType    string   `json:"weaponType,omitempty"`
	ArmorType     string   `json:"armorType,omitempty"`
	ShieldType    string   `json:"shieldType,omitempty"`
	Capacity      string   `json:"capacity,omitempty"`
	CapacityLevel string   `json:"capacityLevel,omitempty"`
	WearLocation  string   `json:"wearLocation,omitempty"`
	Skill         string   `json:"skill,omitempty"`

	Enhancives         []Enhancive        `json:"enhancives"`
	GemstoneProperties []GemstoneProperty `json:"gemstoneProperties"`
	GemstoneBoundTo    string             `json:"gemstoneBoundTo,omitempty"`
	Tags               []string           `json:"tags"`
	Flares             []string           `json:"flares"`
	Spell              string             `json:"spell,omitempty"`
	Blessing           string             `json:"blessing,omitempty"`
	Charges            string             `json:"charges,omitempty"`
	Raw                []string           `json:"raw"`

	SearchText       string `json:"-"`
	SearchTextNoSign string `json:"-"`

	AddedDate    string `json:"addedDate,omitempty"`
	RemovedDate  string `json:"removedDate,omitempty"`
	LastSeenShop string `json:"lastSeenShop,omitempty"`
	LastSeenTown string `json:"lastSeenTown,omitempty"`
}

// PropertyCount counts enhancive properties only.
func (n *NormalizedItem) PropertyCount() int {
	return len(n.Enhancives)
}

func (n *NormalizedItem) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type LoadRun struct {
	TraceID   string
	StartedAt string
	Towns     int
	Items     int
	Added     int
	Removed   int
	Failed    int
	TotalMs   float64
}

type UploadChunk struct {
	SessionID  string
	Filename   string
	FileIndex  int
	TotalFiles int
	Hash       string
	RawRef     string
	Timestamp  string
	Source     string
}
