package settings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModel is returned by a strict picker for ids outside its catalog.
var ErrUnknownModel = errors.New("model is not in the catalog")

// Picker is the single configurable model selector. With AllowCustom unset it
// only accepts catalog ids; with it set any non-blank id is accepted.
type Picker struct {
	Catalog     *Catalog
	AllowCustom bool
	OnSelect    func(id string)
}

// Select validates id and hands it to OnSelect.
func (p Picker) Select(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("model id is required")
	}
	if !p.AllowCustom && !p.Catalog.Contains(id) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	if p.OnSelect != nil {
		p.OnSelect(id)
	}
	return nil
}

// Value returns what the picker displays for the selected id. Strict pickers
// show "" for unknown ids; permissive pickers echo the raw id.
func (p Picker) Value(selected string) string {
	if p.AllowCustom {
		return selected
	}
	return p.Catalog.PickerValue(selected)
}

// DispatchPicker returns a picker whose selections are dispatched to d.
func DispatchPicker(d Dispatcher, catalog *Catalog, allowCustom bool) Picker {
	return Picker{
		Catalog:     catalog,
		AllowCustom: allowCustom,
		OnSelect:    func(id string) { d.Dispatch(SetSelectedModel(id)) },
	}
}
