package builder

import (
	"encoding/json"
	"fmt"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/factory"
	"github.com/vdodev-go/flowmesh/instance"
	"github.com/vdodev-go/flowmesh/param"
)

// Implement binds result's instances to concrete implementations from
// bindingJSON (spec.md §4.6, §6). Direct `{type, initParameters}` and
// `instanceToInterfaceMap` entries resolve first (they only depend on
// the factory registry); `implementationFromGroup` entries resolve in a
// second pass since they reference an already-built group instance.
func Implement(result *Result, registry *factory.Registry, bindingJSON []byte) error {
	var entries map[string]implementEntry
	if err := json.Unmarshal(bindingJSON, &entries); err != nil {
		return errs.Wrap(fmt.Sprintf("parsing implementation binding: %v", err), errs.ErrMalformedGraph)
	}

	getOrCreate := func(name string) *instance.Instance {
		inst, ok := result.Instances[name]
		if !ok {
			inst = instance.New("")
			result.Instances[name] = inst
		}
		return inst
	}

	var groupRefs []string
	for name, entry := range entries {
		if entry.Type == "" {
			if entry.ImplementationFromGroup != nil {
				groupRefs = append(groupRefs, name)
			}
			continue
		}

		inst := getOrCreate(name)

		initParams := param.New()
		if len(entry.InitParameters) > 0 {
			if err := json.Unmarshal(entry.InitParameters, &initParams); err != nil {
				return errs.Wrap(fmt.Sprintf("parsing initParameters for instance %q", name), errs.ErrMalformedGraph)
			}
		}
		inst.SetInitParameters(initParams)

		if err := inst.SetType(entry.Type, registry); err != nil {
			return err
		}
		impl := inst.Implementation()

		if len(entry.InstanceToInterfaceMap) > 0 {
			group, ok := impl.(component.Group)
			if !ok {
				return errs.Wrap(fmt.Sprintf("instance %q declares instanceToInterfaceMap but its implementation is not a group", name), errs.ErrIncompatibleCapability)
			}
			for subName, alias := range entry.InstanceToInterfaceMap {
				sub, ok := group.Interface(alias.Interface)
				if !ok {
					return errs.Wrap(fmt.Sprintf("group %q has no interface %q", name, alias.Interface), errs.ErrMissingFactory)
				}
				getOrCreate(subName).SetImplementation(sub)
			}
		}
	}

	for _, name := range groupRefs {
		entry := entries[name]
		ref := entry.ImplementationFromGroup
		groupInst, ok := result.Instances[ref.GroupInstance]
		if !ok {
			return errs.Wrap(fmt.Sprintf("instance %q references unknown group instance %q", name, ref.GroupInstance), errs.ErrUnknownNode)
		}
		group, ok := groupInst.Implementation().(component.Group)
		if !ok {
			return errs.Wrap(fmt.Sprintf("instance %q references %q, which is not a group", name, ref.GroupInstance), errs.ErrIncompatibleCapability)
		}
		sub, ok := group.Interface(ref.GroupInterface)
		if !ok {
			return errs.Wrap(fmt.Sprintf("group %q has no interface %q", ref.GroupInstance, ref.GroupInterface), errs.ErrMissingFactory)
		}
		getOrCreate(name).SetImplementation(sub)
	}

	return nil
}
