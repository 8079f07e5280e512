// This file is part of Gopherbox.
//
// Gopherbox is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopherbox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopherbox.  If not, see <https://www.gnu.org/licenses/>.

package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Value represents the actual Go preference value.
type Value interface{}

// types support by the prefs system must implement the pref interface.
type pref interface {
	fmt.Stringer
	Set(value Value) error
	Get() Value
	Reset() error
}

// Bool implements a boolean type in the prefs system.
type Bool struct {
	pref
	value    atomic.Value // bool
	hookPost func(value Value) error
}

func (p *Bool) String() string {
	ov := p.value.Load()
	if ov == nil {
		return "false"
	}
	return fmt.Sprintf("%v", ov.(bool))
}

// Set new value to Bool type. New value must be of type bool or string. A
// string value of anything other than "true" (case insensitive) will set the
// value to false.
func (p *Bool) Set(v Value) error {
	var nv bool
	switch v := v.(type) {
	case bool:
		nv = v
	case string:
		nv = strings.ToLower(strings.TrimSpace(v)) == "true"
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Bool", v)
	}

	p.value.Store(nv)

	if p.hookPost != nil {
		return p.hookPost(nv)
	}

	return nil
}

// Get returns the raw pref value.
func (p *Bool) Get() Value {
	ov := p.value.Load()
	if ov == nil {
		return false
	}
	return ov.(bool)
}

// Reset sets the boolean value to false.
func (p *Bool) Reset() error {
	return p.Set(false)
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated. Note that even if the value hasn't changed, the callback
// will be executed.
func (p *Bool) SetHookPost(f func(value Value) error) {
	p.hookPost = f
}

// String implements a string type in the prefs system.
type String struct {
	pref
	maxLen   int
	value    atomic.Value // string
	hookPre  func(value Value) error
	hookPost func(value Value) error
}

func (p *String) String() string {
	ov := p.value.Load()
	if ov == nil {
		return ""
	}
	return ov.(string)
}

// SetMaxLen sets the maximum length for a string when it is set. To set no
// limit use a value less than or equal to zero. Note that the existing string
// will be cropped if necessary - cropped string information will be lost.
func (p *String) SetMaxLen(max int) {
	p.maxLen = max

	ov := p.value.Load()
	if ov == nil {
		return
	}

	if p.maxLen > 0 && len(ov.(string)) > p.maxLen {
		p.value.Store(ov.(string)[:p.maxLen])
	}
}

// Set new value to String type. The new value is formatted with the %v verb
// so any type is accepted.
func (p *String) Set(v Value) error {
	nv := strings.TrimSpace(fmt.Sprintf("%v", v))
	if p.maxLen > 0 && len(nv) > p.maxLen {
		nv = nv[:p.maxLen]
	}

	// the pre hook can reject the new value
	if p.hookPre != nil {
		if err := p.hookPre(nv); err != nil {
			return err
		}
	}

	p.value.Store(nv)

	if p.hookPost != nil {
		return p.hookPost(nv)
	}

	return nil
}

// Get returns the raw pref value.
func (p *String) Get() Value {
	return p.String()
}

// Reset sets the string value to the empty string.
func (p *String) Reset() error {
	return p.Set("")
}

// SetHookPre sets the callback function to be called just before the prefs
// value is updated. If the callback returns an error the value is not
// changed.
func (p *String) SetHookPre(f func(value Value) error) {
	p.hookPre = f
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated.
func (p *String) SetHookPost(f func(value Value) error) {
	p.hookPost = f
}

// Int implements an integer type in the prefs system.
type Int struct {
	pref
	value    atomic.Value // int
	hookPre  func(value Value) error
	hookPost func(value Value) error
}

func (p *Int) String() string {
	ov := p.value.Load()
	if ov == nil {
		return "0"
	}
	return fmt.Sprintf("%d", ov.(int))
}

// Set new value to Int type. New value can be an int or string.
func (p *Int) Set(v Value) error {
	var nv int
	switch v := v.(type) {
	case int64:
		nv = int(v)
	case int32:
		nv = int(v)
	case int:
		nv = v
	case string:
		var err error
		nv, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %T to prefs.Int: %w", v, err)
		}
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Int", v)
	}

	if p.hookPre != nil {
		if err := p.hookPre(nv); err != nil {
			return err
		}
	}

	p.value.Store(nv)

	if p.hookPost != nil {
		return p.hookPost(nv)
	}

	return nil
}

// Get returns the raw pref value.
func (p *Int) Get() Value {
	ov := p.value.Load()
	if ov == nil {
		return 0
	}
	return ov.(int)
}

// Reset sets the int value to zero.
func (p *Int) Reset() error {
	return p.Set(0)
}

// SetHookPre sets the callback function to be called just before the prefs
// value is updated. If the callback returns an error the value is not
// changed.
func (p *Int) SetHookPre(f func(value Value) error) {
	p.hookPre = f
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated.
func (p *Int) SetHookPost(f func(value Value) error) {
	p.hookPost = f
}

// Generic is a general purpose prefererences type, useful for values that
// can't be represented by a single live value. You must use the NewGeneric()
// function to initialise a new instance of Generic.
//
// The Generic prefs type does not handle its own value. Instead it passes the
// value (as a string) to the set() function given to NewGeneric(). The value
// for the disk is retrieved with the get() function.
type Generic struct {
	pref
	crit sync.Mutex
	set  func(string) error
	get  func() string
}

// NewGeneric is the preferred method of initialisation for the Generic type.
func NewGeneric(set func(string) error, get func() string) *Generic {
	return &Generic{
		set: set,
		get: get,
	}
}

func (p *Generic) String() string {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.get()
}

// Set triggers the set value procedure for the generic type.
func (p *Generic) Set(v Value) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.set(strings.TrimSpace(fmt.Sprintf("%v", v)))
}

// Get triggers the get value procedure for the generic type.
func (p *Generic) Get() Value {
	return p.String()
}

// Reset sets the generic value to the empty string.
func (p *Generic) Reset() error {
	return p.Set("")
}
