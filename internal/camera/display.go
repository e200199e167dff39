package camera

// Display is the projector-side copy of what the panel shows for each field
type Display struct {
	values map[Field]string
}

func NewDisplay() *Display {
	return &Display{values: make(map[Field]string)}
}

// Apply takes a projected View. Locked fields keep whatever the user typed.
func (d *Display) Apply(v View) {
	for _, f := range Fields() {
		if v.Locked[f] {
			continue
		}
		if f == FieldHostname {
			d.values[f] = v.Hostname
			continue
		}
		raw, ok := v.Properties[f.Path()]
		if !ok {
			if v.Reset {
				d.values[f] = ""
			}
			continue
		}
		d.values[f] = f.Format(raw)
	}
}

func (d *Display) Value(f Field) string {
	return d.values[f]
}

// Set records a keystroke-level edit
func (d *Display) Set(f Field, value string) {
	d.values[f] = value
}
