package smartcn

import (
	"encoding/json"
	"sort"
	"strings"
)

// CourseBag is one entry of a course bag listing.
type CourseBag struct {
	ID               string `json:"id"`
	ResourceTypeCode string `json:"resource_type_code"`
}

type Tag struct {
	TagID   string `json:"tag_id,omitempty"`
	TagName string `json:"tag_name"`
}

type Resource struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	ResourceTypeCode     string   `json:"resource_type_code"`
	ResourceTypeCodeName string   `json:"resource_type_code_name"`
	ContainerID          string   `json:"container_id"`
	TagList              []Tag    `json:"tag_list"`
	TiItems              []TiItem `json:"ti_items"`
}

type TiItem struct {
	TiFileFlag string            `json:"ti_file_flag"`
	TiStorages []json.RawMessage `json:"ti_storages"`
}

// Detail is a course bag detail document. Only list-valued relations carry
// resources; other values are ignored. Relations are visited in key order.
type Detail struct {
	Relations map[string]json.RawMessage `json:"relations"`
}

func (d Detail) Resources() []Resource {
	keys := make([]string, 0, len(d.Relations))
	for k := range d.Relations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Resource
	for _, k := range keys {
		var list []Resource
		if err := json.Unmarshal(d.Relations[k], &list); err != nil {
			continue
		}
		out = append(out, list...)
	}
	return out
}

func (r Resource) HasTag(name string) bool {
	for _, t := range r.TagList {
		if t.TagName == name {
			return true
		}
	}
	return false
}

func TagNames(tags []Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.TagName != "" {
			names = append(names, t.TagName)
		}
	}
	return strings.Join(names, ",")
}

// StorageURLs returns the usable urls of a ti item. A storage entry is either
// a bare url string or an object with a url field.
func (t TiItem) StorageURLs() []string {
	var out []string
	for _, raw := range t.TiStorages {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
			out = append(out, obj.URL)
		}
	}
	return out
}

// detailPath maps a course bag resource type to its detail document path.
func detailPath(resourceTypeCode, courseBagID string) (string, bool) {
	switch resourceTypeCode {
	case "elite_lesson":
		return "/zxx/ndrv2/resources/" + courseBagID + ".json", true
	case "national_lesson":
		return "/zxx/ndrv2/national_lesson/resources/details/" + courseBagID + ".json", true
	case "prepare_lesson":
		return "/zxx/ndrv2/prepare_lesson/resources/details/" + courseBagID + ".json", true
	}
	return "", false
}

func partsPath(textbookID string) string {
	return "/zxx/ndrs/prepare_lesson/teachingmaterials/" + textbookID + "/resources/parts.json"
}
