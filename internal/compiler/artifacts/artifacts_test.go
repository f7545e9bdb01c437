package artifacts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetPCAndSetSize(t *testing.T) {
	c := NewContractArtifacts()
	c.SetPC("main", 0)
	c.SetSize("main", 6)
	require.Equal(t, BlockArtifact{PC: 0, Size: 6}, c.Blocks["main"])
}

func TestMainBytecode(t *testing.T) {
	a := New("C")
	a.Contracts["C"] = &ContractArtifacts{Bytecode: []byte{0x60, 0x01, 0x00}}
	require.Equal(t, []byte{0x60, 0x01, 0x00}, a.MainBytecode())
}

func TestMainBytecodeMissingContract(t *testing.T) {
	a := New("C")
	require.Nil(t, a.MainBytecode())
}

func TestJSONRoundTrip(t *testing.T) {
	a := New("C")
	ca := NewContractArtifacts()
	ca.Bytecode = []byte{0x60, 0x01, 0x60, 0x02, 0x01, 0x00}
	ca.SetPC("main", 0)
	ca.SetSize("main", 6)
	a.Contracts["C"] = ca

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded Artifacts
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "C", decoded.Main)
	require.Equal(t, ca.Bytecode, decoded.Contracts["C"].Bytecode)
	require.Equal(t, BlockArtifact{PC: 0, Size: 6}, decoded.Contracts["C"].Blocks["main"])
}

func TestMarshalProducesCamelCaseShape(t *testing.T) {
	a := New("C")
	ca := NewContractArtifacts()
	ca.Bytecode = []byte{0x00}
	ca.SetPC("main", 0)
	ca.SetSize("main", 1)
	a.Contracts["C"] = ca

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &generic))
	require.Equal(t, "C", generic["main"])
	contracts := generic["contracts"].(map[string]interface{})
	cObj := contracts["C"].(map[string]interface{})
	require.Equal(t, "0x00", cObj["bytecode"])
	blocks := cObj["blocks"].(map[string]interface{})
	mainBlock := blocks["main"].(map[string]interface{})
	require.Equal(t, float64(0), mainBlock["pc"])
	require.Equal(t, float64(1), mainBlock["size"])
}

func TestUnmarshalRejectsNonHexPrefixedBytecode(t *testing.T) {
	var a Artifacts
	err := json.Unmarshal([]byte(`{"main":"C","contracts":{"C":{"bytecode":"deadbeef","blocks":{}}}}`), &a)
	require.Error(t, err)
}
