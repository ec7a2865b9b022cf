package mongostore

import (
	"strings"

	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/model"
)

// itemDoc is the persisted shape of a record. The key is the document id.
// lore_text denormalizes the lore lines into one lowercased string so search
// can regex-match it without unwinding the array.
type itemDoc struct {
	Key             string         `bson:"_id"`
	Item            string         `bson:"item"`
	DisplayName     string         `bson:"display_name,omitempty"`
	Lore            []string       `bson:"lore,omitempty"`
	LoreText        string         `bson:"lore_text,omitempty"`
	CustomModelData *int           `bson:"custom_model_data,omitempty"`
	Enchantments    map[string]int `bson:"enchantments,omitempty"`
	UpdatedAt       int64          `bson:"updated_at"`
	Deleted         bool           `bson:"is_deleted"`
}

type versionDoc struct {
	ItemName  string `bson:"item_name"`
	Version   int    `bson:"version"`
	Editor    string `bson:"editor,omitempty"`
	Payload   string `bson:"payload"`
	CreatedAt int64  `bson:"created_at"`
	Comment   string `bson:"comment,omitempty"`
	Deleted   bool   `bson:"is_deleted"`
}

type auditDoc struct {
	Action    string `bson:"action"`
	ItemName  string `bson:"item_name,omitempty"`
	Actor     string `bson:"actor,omitempty"`
	Details   string `bson:"details,omitempty"`
	CreatedAt int64  `bson:"created_at"`
}

func newItemDoc(rec *model.Record, payload string) itemDoc {
	return itemDoc{
		Key:             rec.Key,
		Item:            payload,
		DisplayName:     rec.DisplayName,
		Lore:            rec.Lore,
		LoreText:        strings.ToLower(strings.Join(rec.Lore, "\n")),
		CustomModelData: rec.CustomModelData,
		Enchantments:    rec.Enchantments,
		UpdatedAt:       rec.UpdatedAt,
		Deleted:         rec.Deleted,
	}
}

func (d itemDoc) record() (*model.Record, error) {
	it, err := item.Decode(d.Item)
	if err != nil {
		return nil, err
	}
	return model.NewRecordDirect(d.Key, it, d.DisplayName, d.Lore, d.CustomModelData, d.Enchantments, d.UpdatedAt, d.Deleted), nil
}

func (d versionDoc) version() *model.Version {
	return &model.Version{
		ItemName:  d.ItemName,
		Version:   d.Version,
		Editor:    d.Editor,
		Payload:   d.Payload,
		CreatedAt: d.CreatedAt,
		Comment:   d.Comment,
		Deleted:   d.Deleted,
	}
}
