package hyprland

import "strings"

type Keyboard struct {
	Name         string
	Layouts      []string
	Variants     []string
	ActiveKeymap string
	Main         bool
}

type keyboard struct {
	Name         string `json:"name"`
	Layout       string `json:"layout"`
	Variant      string `json:"variant"`
	Options      string `json:"options"`
	ActiveKeymap string `json:"active_keymap"`
	Main         bool   `json:"main"`
}

type devices struct {
	Keyboards []keyboard `json:"keyboards"`
}

type window struct {
	Class string `json:"class"`
	PID   int    `json:"pid"`
}

func (k keyboard) toKeyboard() Keyboard {
	layouts := strings.Split(k.Layout, ",")
	variants := strings.Split(k.Variant, ",")
	// hyprland omits trailing empty variants
	for len(variants) < len(layouts) {
		variants = append(variants, "")
	}

	return Keyboard{
		Name:         k.Name,
		Layouts:      layouts,
		Variants:     variants,
		ActiveKeymap: k.ActiveKeymap,
		Main:         k.Main,
	}
}
