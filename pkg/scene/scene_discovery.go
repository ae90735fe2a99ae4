package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-light-transport/pkg/core"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "document"
	FilePath    string `json:"filePath"`    // Path to the document (document type only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete scene listing
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// ListDocumentScenes scans dir for scene documents (*.json). A missing
// directory yields an empty list.
func ListDocumentScenes(dir string) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	var scenes []SceneInfo
	for _, filePath := range files {
		info, err := ParseDocumentMetadata(filePath)
		if err != nil {
			core.Logger().Warn("skipping scene document", "path", filePath, "error", err)
			continue
		}
		scenes = append(scenes, info)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// ParseDocumentMetadata reads the optional "meta" block of a scene document
//
//	{"meta": {"name": "Cornell Box", "variant": "Blue", "group": "Cornell Variants"}, "scene": "cornell"}
func ParseDocumentMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	doc, err := LoadDocument(filePath)
	if err != nil {
		return SceneInfo{}, err
	}

	info := SceneInfo{
		ID:          documentPrefix + nameWithoutExt,
		Name:        doc.String("meta.name", titleCase(nameWithoutExt)),
		Description: doc.String("meta.description", ""),
		Group:       doc.String("meta.group", "Scene Documents"),
		Type:        "document",
		FilePath:    filePath,
		Variant:     doc.String("meta.variant", ""),
	}
	if info.Variant != "" {
		info.DisplayName = fmt.Sprintf("%s - %s", info.Name, info.Variant)
	} else {
		info.DisplayName = info.Name
	}
	return info, nil
}

// ListAllScenes returns the built-in scenes and the documents in dir,
// grouped by category
func ListAllScenes(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	var allScenes []SceneInfo
	for _, name := range BuiltinNames() {
		allScenes = append(allScenes, builtins[name].info)
	}

	documents, err := ListDocumentScenes(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list scene documents: %w", err)
	}
	allScenes = append(allScenes, documents...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	if builtInGroup, exists := groupMap[builtinGroup]; exists {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   builtinGroup,
			Scenes: builtInGroup,
		})
	}
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}

// documentPrefix marks scene IDs that name a document in the scenes directory
const documentPrefix = "document:"

// ResolveDocument turns a scene identifier into a document. The identifier
// is a built-in scene name, a listed document ID ("document:<name>", looked
// up in dir) or a path to a JSON document.
func ResolveDocument(id, dir string) (*Document, error) {
	switch {
	case id == "":
		return nil, fmt.Errorf("no scene given")
	case strings.HasPrefix(id, documentPrefix):
		name := strings.TrimPrefix(id, documentPrefix)
		if name == "" || filepath.Base(name) != name {
			return nil, core.NewConfigError("scene document", name)
		}
		return LoadDocument(filepath.Join(dir, name+".json"))
	case strings.HasSuffix(id, ".json"):
		return LoadDocument(id)
	}
	if _, ok := builtins[id]; !ok {
		return nil, fmt.Errorf("%w (built-in scenes: %s)", core.NewConfigError("scene", id), strings.Join(BuiltinNames(), ", "))
	}
	return NewDocument(id), nil
}
