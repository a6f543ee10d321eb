// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cib

import "encoding/xml"

// The types below mirror the subset of the CIB schema SPEC_FULL.md §4.1
// names: /cib/configuration/{nodes,resources,constraints} and
// /cib/status. They exist only to decode with encoding/xml; cluster.Resource
// et al. are what the rest of the controller works with.

type xmlDoc struct {
	XMLName       xml.Name      `xml:"cib"`
	Configuration xmlConfig     `xml:"configuration"`
	Status        xmlStatus     `xml:"status"`
}

type xmlConfig struct {
	Nodes       xmlNodes       `xml:"nodes"`
	Resources   xmlResources   `xml:"resources"`
	Constraints xmlConstraints `xml:"constraints"`
}

type xmlNodes struct {
	Node []xmlNode `xml:"node"`
}

type xmlNode struct {
	ID    string `xml:"id,attr"`
	Uname string `xml:"uname,attr"`
	Type  string `xml:"type,attr"` // member|remote|guest
}

type xmlNvPair struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlMetaAttributes struct {
	NvPair []xmlNvPair `xml:"nvpair"`
}

func (m xmlMetaAttributes) get(name string) (string, bool) {
	for _, p := range m.NvPair {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

type xmlResources struct {
	Primitive []xmlPrimitive `xml:"primitive"`
	Group     []xmlGroup     `xml:"group"`
	Clone     []xmlClone     `xml:"clone"`
	Bundle    []xmlClone     `xml:"bundle"`
}

type xmlPrimitive struct {
	ID    string `xml:"id,attr"`
	Class string `xml:"class,attr"`
	Provider string `xml:"provider,attr"`
	Type  string `xml:"type,attr"`
	Meta  xmlMetaAttributes `xml:"meta_attributes"`
}

type xmlGroup struct {
	ID        string         `xml:"id,attr"`
	Primitive []xmlPrimitive `xml:"primitive"`
	Meta      xmlMetaAttributes `xml:"meta_attributes"`
}

type xmlClone struct {
	ID        string            `xml:"id,attr"`
	Meta      xmlMetaAttributes `xml:"meta_attributes"`
	Primitive []xmlPrimitive    `xml:"primitive"`
	Group     []xmlGroup        `xml:"group"`
}

type xmlConstraints struct {
	Colocation []xmlColocation `xml:"rsc_colocation"`
	Order      []xmlOrder      `xml:"rsc_order"`
	Location   []xmlLocation   `xml:"rsc_location"`
	Ticket     []xmlTicket     `xml:"rsc_ticket"`
	Fencing    xmlFencingTopology `xml:"fencing-topology"`
}

type xmlColocation struct {
	ID            string `xml:"id,attr"`
	Rsc           string `xml:"rsc,attr"`
	WithRsc       string `xml:"with-rsc,attr"`
	Score         string `xml:"score,attr"`
	RscRole       string `xml:"rsc-role,attr"`
	WithRscRole   string `xml:"with-rsc-role,attr"`
	Influence     string `xml:"influence,attr"`
}

type xmlOrder struct {
	ID          string `xml:"id,attr"`
	First       string `xml:"first,attr"`
	FirstAction string `xml:"first-action,attr"`
	Then        string `xml:"then,attr"`
	ThenAction  string `xml:"then-action,attr"`
	Kind        string `xml:"kind,attr"` // Mandatory|Optional|Serialize
}

type xmlLocation struct {
	ID    string        `xml:"id,attr"`
	Rsc   string        `xml:"rsc,attr"`
	Node  string        `xml:"node,attr"`
	Score string        `xml:"score,attr"`
	Rule  *xmlRule      `xml:"rule"`
}

type xmlRule struct {
	Score       string            `xml:"score,attr"`
	Expression  []xmlExpression   `xml:"expression"`
}

type xmlExpression struct {
	Attribute string `xml:"attribute,attr"`
	Operation string `xml:"operation,attr"`
	Value     string `xml:"value,attr"`
}

type xmlTicket struct {
	ID         string `xml:"id,attr"`
	Rsc        string `xml:"rsc,attr"`
	Ticket     string `xml:"ticket,attr"`
	LossPolicy string `xml:"loss-policy,attr"`
}

type xmlFencingTopology struct {
	Level []xmlFencingLevel `xml:"fencing-level"`
}

type xmlFencingLevel struct {
	Target  string `xml:"target,attr"`
	Index   int    `xml:"index,attr"`
	Devices string `xml:"devices,attr"`
}

type xmlStatus struct {
	NodeState []xmlNodeState `xml:"node_state"`
}

type xmlNodeState struct {
	ID  string `xml:"id,attr"`
	LRM xmlLRM `xml:"lrm"`
}

type xmlLRM struct {
	Resources xmlLRMResources `xml:"lrm_resources"`
}

type xmlLRMResources struct {
	Resource []xmlLRMResource `xml:"lrm_resource"`
}

type xmlLRMResource struct {
	ID string         `xml:"id,attr"`
	Op []xmlLRMRscOp  `xml:"lrm_rsc_op"`
}

type xmlLRMRscOp struct {
	ID       string `xml:"id,attr"`
	Operation string `xml:"operation,attr"`
	RCCode   int    `xml:"rc-code,attr"`
	Interval int    `xml:"interval,attr"`
}
