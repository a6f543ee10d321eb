// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package cib

import (
	"testing"

	"github.com/shoenig/test/must"
	"github.com/tahliar/pacemaker/internal/cluster"
)

const sampleCIB = `<cib>
  <configuration>
    <nodes>
      <node id="n1" uname="rhel7-4"/>
      <node id="n2" uname="rhel7-5"/>
    </nodes>
    <resources>
      <primitive id="dummy1" class="ocf" provider="pacemaker" type="Dummy">
        <meta_attributes>
          <nvpair name="resource-stickiness" value="100"/>
        </meta_attributes>
      </primitive>
    </resources>
    <constraints>
      <rsc_location id="loc1" rsc="dummy1" node="n1" score="50"/>
    </constraints>
  </configuration>
  <status>
    <node_state id="n2">
      <lrm>
        <lrm_resources>
          <lrm_resource id="dummy1">
            <lrm_rsc_op id="dummy1_start_0" operation="start" rc-code="0"/>
          </lrm_resource>
        </lrm_resources>
      </lrm>
    </node_state>
  </status>
</cib>`

func members() []MembershipNode {
	return []MembershipNode{
		{ID: "n1", Online: true, State: cluster.MemberOnline},
		{ID: "n2", Online: true, State: cluster.MemberOnline},
	}
}

func TestIngest_Basic(t *testing.T) {
	ws, err := Ingest([]byte(sampleCIB), members(), 0)
	must.NoError(t, err)
	must.Len(t, 2, mapKeys(ws.Nodes))
	r, ok := ws.Resources["dummy1"]
	must.True(t, ok)
	must.Eq(t, cluster.Score(100), r.Meta.Stickiness)
	must.Eq(t, []string{"n2"}, r.Primitive.RunningOn)
	must.Len(t, 1, ws.Locations)
	must.Eq(t, cluster.Score(50), ws.Locations[0].Score)
}

func TestIngest_UnknownStatusNode(t *testing.T) {
	doc := `<cib><configuration><nodes><node id="n1" uname="a"/></nodes>
	<resources></resources><constraints></constraints></configuration>
	<status><node_state id="ghost"><lrm><lrm_resources></lrm_resources></lrm></node_state></status></cib>`
	_, err := Ingest([]byte(doc), members(), 0)
	must.Error(t, err)
}

func mapKeys(m map[string]*cluster.Node) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
