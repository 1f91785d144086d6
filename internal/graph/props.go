package graph

import (
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func propFloat(props map[string]any, key string) float64 {
	f, _ := asFloat(props[key])
	return f
}

func propFloatPtr(props map[string]any, key string) *float64 {
	f, ok := asFloat(props[key])
	if !ok {
		return nil
	}
	return &f
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case neo4j.LocalDateTime:
		return t.Time(), true
	case neo4j.Date:
		return t.Time(), true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func propTime(props map[string]any, key string) time.Time {
	t, _ := asTime(props[key])
	return t
}

func propTimePtr(props map[string]any, key string) *time.Time {
	t, ok := asTime(props[key])
	if !ok {
		return nil
	}
	return &t
}

func hypothesisFromNode(n neo4j.Node) domain.Hypothesis {
	p := n.Props
	return domain.Hypothesis{
		ID:                        propString(p, "id"),
		Statement:                 propString(p, "statement"),
		Confidence:                propFloat(p, "confidence"),
		BaseConfidence:            propFloatPtr(p, "base_confidence"),
		Updated:                   propTime(p, "updated"),
		Verified:                  propTimePtr(p, "verified"),
		VerificationType:          domain.VerificationType(propString(p, "verification_type")),
		PreVerificationConfidence: propFloatPtr(p, "pre_verification_confidence"),
	}
}

func evidenceFromNode(n neo4j.Node) domain.Evidence {
	p := n.Props
	return domain.Evidence{
		ID:        propString(p, "id"),
		Content:   propString(p, "content"),
		SourceURL: propString(p, "source_url"),
		Timestamp: propTime(p, "timestamp"),
	}
}

func likelihoodsFromProps(p map[string]any) domain.Likelihoods {
	return domain.Likelihoods{
		PEGivenH:    propFloat(p, "p_e_given_h"),
		PEGivenNotH: propFloat(p, "p_e_given_not_h"),
	}
}

func nodeAt(rec *neo4j.Record, key string) (neo4j.Node, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return neo4j.Node{}, false
	}
	n, ok := v.(neo4j.Node)
	return n, ok
}

func relAt(rec *neo4j.Record, key string) (neo4j.Relationship, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return neo4j.Relationship{}, false
	}
	r, ok := v.(neo4j.Relationship)
	return r, ok
}
