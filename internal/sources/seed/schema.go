package seed

// Entry is one item of the seed YAML list. id is optional and generated
// when absent; lat and lng go together.
type Entry struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Notes string   `yaml:"notes"`
	Lat   *float64 `yaml:"lat"`
	Lng   *float64 `yaml:"lng"`
	Zoom  int      `yaml:"zoom"`
}

// File is the root of the seed YAML document.
type File []Entry
