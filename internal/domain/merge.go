package domain

// FillMissing copies every attribute of src into s where s has none.
// Known attributes of s are never overwritten. It reports whether s changed.
func (s *StationInfo) FillMissing(src StationInfo) bool {
	changed := fill(&s.Name, src.Name)
	changed = fill(&s.Location, src.Location) || changed
	changed = fill(&s.Latitude, src.Latitude) || changed
	changed = fill(&s.Longitude, src.Longitude) || changed
	changed = fill(&s.ElevationMeters, src.ElevationMeters) || changed
	changed = fill(&s.Type, src.Type) || changed
	changed = fill(&s.Region, src.Region) || changed
	changed = fill(&s.Country, src.Country) || changed
	return changed
}

// FillMissing copies every attribute of src into p where p has none.
func (p *ProductInfo) FillMissing(src ProductInfo) bool {
	changed := fill(&p.Name, src.Name)
	changed = fill(&p.Category, src.Category) || changed
	changed = fill(&p.Description, src.Description) || changed
	return changed
}

func fill[T comparable](dst **T, src *T) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}
