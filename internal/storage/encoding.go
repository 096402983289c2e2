package storage

import (
	"encoding/json"
	"fmt"
)

// Encoding between model variant structs and the data_json columns.
// An entity serializes exactly one variant payload; a member serializes its
// method payload or "{}".

// marshalEntityData encodes the non-nil variant of entity as JSON.
// Returns "{}" when no variant is set.
func marshalEntityData(entity *Entity) (string, error) {
	var payload interface{}
	switch {
	case entity.Class != nil:
		payload = entity.Class
	case entity.Enum != nil:
		payload = entity.Enum
	case entity.Function != nil:
		payload = entity.Function
	case entity.Typedef != nil:
		payload = entity.Typedef
	default:
		return "{}", nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// unmarshalEntityData hydrates the variant pointer matching entity.EntityType
// from dataJSON. The variant is materialized even for an empty payload, so
// callers can rely on the pointer agreeing with EntityType.
func unmarshalEntityData(entity *Entity, dataJSON string) error {
	if dataJSON == "" {
		dataJSON = "{}"
	}
	raw := []byte(dataJSON)

	switch entity.EntityType {
	case EntityClass:
		entity.Class = &ClassData{}
		if err := json.Unmarshal(raw, entity.Class); err != nil {
			return fmt.Errorf("invalid class payload for %s: %w", entity.Name, err)
		}
	case EntityEnum:
		entity.Enum = &EnumData{}
		if err := json.Unmarshal(raw, entity.Enum); err != nil {
			return fmt.Errorf("invalid enum payload for %s: %w", entity.Name, err)
		}
	case EntityFunction:
		entity.Function = &FunctionData{}
		if err := json.Unmarshal(raw, entity.Function); err != nil {
			return fmt.Errorf("invalid function payload for %s: %w", entity.Name, err)
		}
	case EntityTypedef:
		entity.Typedef = &TypedefData{}
		if err := json.Unmarshal(raw, entity.Typedef); err != nil {
			return fmt.Errorf("invalid typedef payload for %s: %w", entity.Name, err)
		}
	}
	return nil
}

// marshalMemberData encodes a member's method payload, or "{}" for fields.
func marshalMemberData(m *Member) (string, error) {
	if m.Method == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(m.Method)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// unmarshalRelationshipData decodes an edge payload in place.
func unmarshalRelationshipData(data *RelationshipData, dataJSON string) error {
	if err := json.Unmarshal([]byte(dataJSON), data); err != nil {
		return fmt.Errorf("invalid relationship payload: %w", err)
	}
	return nil
}

// unmarshalMemberData hydrates the method payload for method members.
// Field members keep a nil payload.
func unmarshalMemberData(m *Member, dataJSON string) error {
	if m.MemberType != MemberMethod {
		return nil
	}
	if dataJSON == "" {
		dataJSON = "{}"
	}
	m.Method = &MethodData{}
	if err := json.Unmarshal([]byte(dataJSON), m.Method); err != nil {
		return fmt.Errorf("invalid method payload for %s: %w", m.Name, err)
	}
	return nil
}
