package l1clusters

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// clusterRecord is the on-disk form used by the cluster file adapter.
type clusterRecord struct {
	Group   string  `json:"group"`
	Sector  int     `json:"sector"`
	Row     int     `json:"row"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	SigmaY2 float64 `json:"sy2"`
	SigmaZ2 float64 `json:"sz2"`
	Q       float64 `json:"q"`
	Labels  []int   `json:"labels,omitempty"`
}

// ReadJSON decodes a JSON array of cluster records. IDs are left at zero;
// they are assigned when the clusters are added to an Arena.
func ReadJSON(r io.Reader) ([]Cluster, error) {
	var records []clusterRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode cluster file: %w", err)
	}

	out := make([]Cluster, 0, len(records))
	for i, rec := range records {
		g, err := ParseGroup(rec.Group)
		if err != nil {
			return nil, fmt.Errorf("cluster %d: %w", i, err)
		}
		if rec.SigmaY2 < 0 || rec.SigmaZ2 < 0 {
			return nil, fmt.Errorf("cluster %d: negative variance (sy2=%g, sz2=%g)", i, rec.SigmaY2, rec.SigmaZ2)
		}
		if len(rec.Labels) > 3 {
			return nil, fmt.Errorf("cluster %d: at most 3 labels allowed, got %d", i, len(rec.Labels))
		}
		c := Cluster{
			Group:   g,
			Sector:  rec.Sector,
			Row:     rec.Row,
			Y:       rec.Y,
			Z:       rec.Z,
			SigmaY2: rec.SigmaY2,
			SigmaZ2: rec.SigmaZ2,
			Q:       rec.Q,
			Labels:  Unlabelled(),
		}
		copy(c.Labels[:], rec.Labels)
		out = append(out, c)
	}
	return out, nil
}

// WriteJSON encodes clusters in the format read by ReadJSON.
func WriteJSON(w io.Writer, clusters []Cluster) error {
	records := make([]clusterRecord, len(clusters))
	for i, c := range clusters {
		rec := clusterRecord{
			Group:   c.Group.String(),
			Sector:  c.Sector,
			Row:     c.Row,
			Y:       c.Y,
			Z:       c.Z,
			SigmaY2: c.SigmaY2,
			SigmaZ2: c.SigmaZ2,
			Q:       c.Q,
		}
		for _, l := range c.Labels {
			if l != NoLabel {
				rec.Labels = append(rec.Labels, l)
			}
		}
		records[i] = rec
	}
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}
