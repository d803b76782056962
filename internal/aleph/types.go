package aleph

// SchemaImage is the entity schema accepted by the pipeline.
const SchemaImage = "Image"

// Entity is one Aleph entity. Only the fields the pipeline reads are mapped.
type Entity struct {
	ID         string              `json:"id"`
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`
	Links      EntityLinks         `json:"links"`
}

// EntityLinks holds the download links attached to an entity.
type EntityLinks struct {
	File string `json:"file"`
}

// FileName returns the entity's first fileName property, or its id when the
// property is missing.
func (e *Entity) FileName() string {
	if names := e.Properties["fileName"]; len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return e.ID
}

// IsImage reports whether the entity carries the Image schema.
func (e *Entity) IsImage() bool {
	return e.Schema == SchemaImage
}

// Collection is one Aleph collection.
type Collection struct {
	ID        string `json:"id"`
	ForeignID string `json:"foreign_id"`
	Label     string `json:"label"`
}

// collectionsResponse is the paginated collection search response.
type collectionsResponse struct {
	Results []Collection `json:"results"`
}
