package campus

// validate checks the structural invariants spec.md §4.E requires of
// the assembled topology, returning a *TopologyError on the first
// violation found.
func (c *Campus) validate() error {
	for _, b := range c.Buildings {
		for i, ahu := range b.AHUs {
			if len(ahu.VAVs) == 0 && ahu.OutsideAirDamper < 100 {
				return badTopology("%s AHU %d has no VAVs and is not 100%% outside air", b.Name, i+1)
			}
		}
	}

	for _, ch := range c.Plant.Chillers {
		if ch.Tower == nil {
			return badTopology("chiller rank %d has no condenser-side tower", ch.Rank)
		}
	}

	for _, p := range c.Plant.Pumps {
		if p.Loop == "" {
			return badTopology("pump has no named loop")
		}
	}

	return nil
}
