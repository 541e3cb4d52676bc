package reconciler

// Counts tallies the writes issued for one resource kind during a pass.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Total returns the number of writes across all operations.
func (c Counts) Total() int {
	return c.Created + c.Updated + c.Deleted
}

func (c *Counts) merge(other Counts) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Deleted += other.Deleted
}

// Stats summarizes one reconciliation pass.
type Stats struct {
	Partitions   int    `json:"partitions"`
	Services     int    `json:"services"`
	IApps        Counts `json:"iapps"`
	Monitors     Counts `json:"monitors"`
	Pools        Counts `json:"pools"`
	Virtuals     Counts `json:"virtuals"`
	Members      Counts `json:"members"`
	NodesDeleted int    `json:"nodesDeleted"`
}

// Changed reports whether the pass wrote anything to the device.
func (s *Stats) Changed() bool {
	writes := s.IApps.Total() + s.Monitors.Total() + s.Pools.Total() +
		s.Virtuals.Total() + s.Members.Total() + s.NodesDeleted
	return writes > 0
}

func (s *Stats) merge(other *Stats) {
	s.IApps.merge(other.IApps)
	s.Monitors.merge(other.Monitors)
	s.Pools.merge(other.Pools)
	s.Virtuals.merge(other.Virtuals)
	s.Members.merge(other.Members)
	s.NodesDeleted += other.NodesDeleted
}
