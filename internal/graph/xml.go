// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
)

// attrMap marshals/unmarshals a <attributes CRM_meta_foo="bar" .../> element
// whose attribute set is dynamic (keyed by whatever CRM_meta_* names this
// action happens to carry), which encoding/xml's struct tags can't express
// directly (spec.md §6: "attribute order within an element is not
// significant").
type attrMap map[string]string

func (a attrMap) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "attributes"}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start.Attr = start.Attr[:0]
	for _, k := range keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: a[k]})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

func (a *attrMap) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	m := make(attrMap, len(start.Attr))
	for _, attr := range start.Attr {
		m[attr.Name.Local] = attr.Value
	}
	*a = m
	return d.Skip()
}

type xmlGraph struct {
	XMLName           xml.Name      `xml:"transition_graph"`
	ClusterDelay      int           `xml:"cluster-delay,attr"`
	StonithTimeout    int           `xml:"stonith-timeout,attr"`
	FailedStopOffset  string        `xml:"failed-stop-offset,attr"`
	FailedStartOffset string        `xml:"failed-start-offset,attr"`
	TransitionID      int           `xml:"transition_id,attr"`
	Synapse           []xmlSynapse  `xml:"synapse"`
}

type xmlSynapse struct {
	ID        uint64        `xml:"id,attr"`
	Priority  int           `xml:"priority,attr"`
	ActionSet xmlActionSet  `xml:"action_set"`
	Inputs    *xmlInputs    `xml:"inputs"`
}

type xmlActionSet struct {
	RscOp       *xmlAction `xml:"rsc_op"`
	PseudoEvent *xmlAction `xml:"pseudo_event"`
	CrmEvent    *xmlAction `xml:"crm_event"`
}

type xmlAction struct {
	ID         uint64  `xml:"id,attr"`
	Operation  string  `xml:"operation,attr"`
	OnNode     string  `xml:"on_node,attr,omitempty"`
	OnNodeUUID string  `xml:"on_node_uuid,attr,omitempty"`
	Attributes attrMap `xml:"attributes"`
}

type xmlInputs struct {
	Trigger []xmlTrigger `xml:"trigger"`
}

type xmlTrigger struct {
	RscOp       *xmlTriggerRef `xml:"rsc_op"`
	PseudoEvent *xmlTriggerRef `xml:"pseudo_event"`
	CrmEvent    *xmlTriggerRef `xml:"crm_event"`
}

type xmlTriggerRef struct {
	ID uint64 `xml:"id,attr"`
}

// Marshal renders a Graph to the wire-compatible XML schema spec.md §6
// requires.
func Marshal(g *Graph) ([]byte, error) {
	doc := xmlGraph{
		ClusterDelay:      g.ClusterDelay,
		StonithTimeout:    g.StonithTimeout,
		FailedStopOffset:  g.FailedStopOffset,
		FailedStartOffset: g.FailedStartOffset,
		TransitionID:      g.TransitionID,
	}
	for _, s := range g.Synapses {
		doc.Synapse = append(doc.Synapse, synapseToXML(s))
	}
	return xml.MarshalIndent(doc, "", "  ")
}

func synapseToXML(s *Synapse) xmlSynapse {
	xs := xmlSynapse{ID: s.ID, Priority: s.Priority}
	act := actionToXML(&s.Action)
	switch s.Action.Kind {
	case KindRscOp:
		xs.ActionSet.RscOp = &act
	case KindPseudoEvent:
		xs.ActionSet.PseudoEvent = &act
	case KindCrmEvent:
		xs.ActionSet.CrmEvent = &act
	}
	if len(s.Inputs) > 0 {
		in := &xmlInputs{}
		for _, id := range s.Inputs {
			in.Trigger = append(in.Trigger, xmlTrigger{RscOp: &xmlTriggerRef{ID: id}})
		}
		xs.Inputs = in
	}
	return xs
}

func actionToXML(a *ActionSet) xmlAction {
	xa := xmlAction{
		ID:         a.ID,
		Operation:  a.Task,
		OnNode:     a.Node,
		OnNodeUUID: a.NodeUUID,
		Attributes: attrMap{},
	}
	for k, v := range a.Attributes {
		xa.Attributes[k] = v
	}
	xa.Attributes["CRM_meta_name"] = a.Task
	if a.Resource != "" {
		xa.Attributes["CRM_meta_resource"] = a.Resource
	}
	if a.Timeout > 0 {
		xa.Attributes["CRM_meta_timeout"] = strconv.Itoa(a.Timeout)
	}
	if a.Interval > 0 {
		xa.Attributes["CRM_meta_interval"] = strconv.Itoa(a.Interval)
	}
	if a.Node != "" {
		xa.Attributes["CRM_meta_on_node"] = a.Node
		xa.Attributes["CRM_meta_on_node_uuid"] = a.NodeUUID
	}
	return xa
}

// Unmarshal parses a wire-compatible transition_graph document back into a
// Graph (spec.md §8-P6 round-trip).
func Unmarshal(data []byte) (*Graph, error) {
	var doc xmlGraph
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("graph: malformed document: %w", err)
	}
	g := &Graph{
		TransitionID:      doc.TransitionID,
		ClusterDelay:      doc.ClusterDelay,
		StonithTimeout:    doc.StonithTimeout,
		FailedStopOffset:  doc.FailedStopOffset,
		FailedStartOffset: doc.FailedStartOffset,
	}
	for _, xs := range doc.Synapse {
		s := &Synapse{ID: xs.ID, Priority: xs.Priority}
		switch {
		case xs.ActionSet.RscOp != nil:
			s.Action = actionFromXML(xs.ActionSet.RscOp, KindRscOp)
		case xs.ActionSet.PseudoEvent != nil:
			s.Action = actionFromXML(xs.ActionSet.PseudoEvent, KindPseudoEvent)
		case xs.ActionSet.CrmEvent != nil:
			s.Action = actionFromXML(xs.ActionSet.CrmEvent, KindCrmEvent)
		}
		if xs.Inputs != nil {
			for _, t := range xs.Inputs.Trigger {
				switch {
				case t.RscOp != nil:
					s.Inputs = append(s.Inputs, t.RscOp.ID)
				case t.PseudoEvent != nil:
					s.Inputs = append(s.Inputs, t.PseudoEvent.ID)
				case t.CrmEvent != nil:
					s.Inputs = append(s.Inputs, t.CrmEvent.ID)
				}
			}
		}
		g.Synapses = append(g.Synapses, s)
	}
	return g, nil
}

func actionFromXML(a *xmlAction, kind ActionSetKind) ActionSet {
	attrs := map[string]string(a.Attributes)
	task := a.Operation
	if v, ok := attrs["CRM_meta_name"]; ok {
		task = v
	}
	timeout, _ := strconv.Atoi(attrs["CRM_meta_timeout"])
	interval, _ := strconv.Atoi(attrs["CRM_meta_interval"])
	return ActionSet{
		Kind:       kind,
		ID:         a.ID,
		Task:       task,
		Resource:   attrs["CRM_meta_resource"],
		Node:       a.OnNode,
		NodeUUID:   a.OnNodeUUID,
		Timeout:    timeout,
		Interval:   interval,
		Attributes: attrs,
	}
}
