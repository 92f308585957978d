package app

func (s Service) ParseVersion(text string) (VersionInfo, error) {
	version, err := s.resolveVersion(text)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		Text:      text,
		Format:    version.Format(),
		Canonical: version.String(),
		SafeName:  version.SafeName(),
	}, nil
}

// CompareVersions orders two version strings. Both must resolve to the same
// format.
func (s Service) CompareVersions(left string, right string) (CompareResult, error) {
	a, err := s.resolveVersion(left)
	if err != nil {
		return CompareResult{}, err
	}
	b, err := s.resolveVersion(right)
	if err != nil {
		return CompareResult{}, err
	}
	order, err := a.Compare(b)
	if err != nil {
		return CompareResult{}, err
	}
	return CompareResult{
		Left:  VersionInfo{Text: left, Format: a.Format(), Canonical: a.String(), SafeName: a.SafeName()},
		Right: VersionInfo{Text: right, Format: b.Format(), Canonical: b.String(), SafeName: b.SafeName()},
		Order: order,
	}, nil
}
