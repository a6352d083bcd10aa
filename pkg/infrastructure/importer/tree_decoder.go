// Package importer decodes assembly trees exported by the CAD import tool.
//
// The document lists every distinct part geometry once under "parts" and
// references it from the tree by key, so several nodes can share one Part:
//
//	{
//	  "parts": {"P1": {"shape_key": "SHEET_METAL_FLAT", "thickness": 2, ...}},
//	  "root": {
//	    "id": "A1", "name": "Frame", "kind": "assembly",
//	    "children": [{"name": "Base", "kind": "part", "part_ref": "P1", "quantity": 2}]
//	  }
//	}
//
// Nodes without an id receive a generated UUID.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/services/tree_validator"
)

const (
	kindPart     = "part"
	kindAssembly = "assembly"
)

type document struct {
	Parts map[string]*entities.Part `json:"parts"`
	Root  *nodeRecord               `json:"root"`
}

type nodeRecord struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	PartRef  string         `json:"part_ref"`
	Part     *entities.Part `json:"part"`
	Quantity *int64         `json:"quantity"`
	Children []*nodeRecord  `json:"children"`
}

// IDGenerator produces ids for nodes the document leaves unnamed
type IDGenerator func() string

// Decoder builds validated assembly trees from JSON documents
type Decoder struct {
	newID IDGenerator
}

// NewDecoder creates a decoder; a nil generator uses random UUIDs
func NewDecoder(newID IDGenerator) *Decoder {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Decoder{newID: newID}
}

// DecodeFile reads a tree document from disk
func (d *Decoder) DecodeFile(filename string) (*entities.Node, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open assembly file %s: %w", filename, err)
	}
	defer file.Close()

	return d.Decode(file)
}

// Decode reads a tree document and validates the resulting tree
func (d *Decoder) Decode(r io.Reader) (*entities.Node, error) {
	var doc document
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode assembly document: %w", err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("assembly document has no root")
	}

	for ref, part := range doc.Parts {
		if part == nil {
			return nil, fmt.Errorf("part %s is empty", ref)
		}
		if err := checkShape(part); err != nil {
			return nil, fmt.Errorf("part %s: %w", ref, err)
		}
		if part.ID == "" {
			part.ID = ref
		}
	}

	root, err := d.build(doc.Root, doc.Parts, "root")
	if err != nil {
		return nil, err
	}

	if result := tree_validator.ValidateTree(root); !result.Valid() {
		return nil, result.Err()
	}
	return root, nil
}

func (d *Decoder) build(record *nodeRecord, parts map[string]*entities.Part, path string) (*entities.Node, error) {
	if record == nil {
		return nil, fmt.Errorf("%s: empty node", path)
	}

	id := strings.TrimSpace(record.ID)
	if id == "" {
		id = d.newID()
	}
	path = path + "/" + id

	switch strings.ToLower(record.Kind) {
	case kindPart:
		part, err := resolvePart(record, parts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		quantity := int64(1)
		if record.Quantity != nil {
			quantity = *record.Quantity
		}
		if len(record.Children) > 0 {
			return nil, fmt.Errorf("%s: part node cannot have children", path)
		}
		node, err := entities.NewPartNode(entities.NodeID(id), record.Name, part, entities.Quantity(quantity))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return node, nil

	case kindAssembly:
		if record.PartRef != "" || record.Part != nil {
			return nil, fmt.Errorf("%s: assembly node cannot carry a part", path)
		}
		children := make([]*entities.Node, 0, len(record.Children))
		for _, childRecord := range record.Children {
			child, err := d.build(childRecord, parts, path)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return entities.NewAssemblyNode(entities.NodeID(id), record.Name, children...)

	default:
		return nil, fmt.Errorf("%s: unknown node kind %q", path, record.Kind)
	}
}

func resolvePart(record *nodeRecord, parts map[string]*entities.Part) (*entities.Part, error) {
	switch {
	case record.PartRef != "" && record.Part != nil:
		return nil, fmt.Errorf("node sets both part and part_ref")
	case record.PartRef != "":
		part, ok := parts[record.PartRef]
		if !ok {
			return nil, fmt.Errorf("unknown part_ref %s", record.PartRef)
		}
		return part, nil
	case record.Part != nil:
		if err := checkShape(record.Part); err != nil {
			return nil, err
		}
		return record.Part, nil
	default:
		return nil, fmt.Errorf("part node has no part")
	}
}

func checkShape(part *entities.Part) error {
	shape, err := entities.ParseShapeKey(string(part.ShapeKey))
	if err != nil {
		return err
	}
	part.ShapeKey = shape
	return nil
}
