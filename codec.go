package tvmsym

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CodecVersion is the version of the serialized contract & test formats.
const CodecVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("tvmsym: cbor enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalContractCBOR encodes a contract as canonical CBOR.
func MarshalContractCBOR(c *Contract) ([]byte, error) {
	w, err := encodeContract(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalContractCBOR decodes a contract from CBOR.
func UnmarshalContractCBOR(data []byte) (*Contract, error) {
	var w contractWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "unmarshal contract")
	}
	return decodeContract(&w)
}

// MarshalContractYAML encodes a contract as YAML.
func MarshalContractYAML(c *Contract) ([]byte, error) {
	w, err := encodeContract(c)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(w)
}

// UnmarshalContractYAML decodes a contract from YAML.
func UnmarshalContractYAML(data []byte) (*Contract, error) {
	var w contractWire
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "unmarshal contract")
	}
	return decodeContract(&w)
}

// MarshalTestsCBOR encodes test records as canonical CBOR.
func MarshalTestsCBOR(recs []*TestRecord) ([]byte, error) {
	return cborEncMode.Marshal(encodeTests(recs))
}

// UnmarshalTestsCBOR decodes test records from CBOR.
func UnmarshalTestsCBOR(data []byte) ([]*TestRecord, error) {
	var w testsWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "unmarshal tests")
	}
	return decodeTests(&w)
}

// MarshalTestsYAML encodes test records as YAML.
func MarshalTestsYAML(recs []*TestRecord) ([]byte, error) {
	return yaml.Marshal(encodeTests(recs))
}

// UnmarshalTestsYAML decodes test records from YAML.
func UnmarshalTestsYAML(data []byte) ([]*TestRecord, error) {
	var w testsWire
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "unmarshal tests")
	}
	return decodeTests(&w)
}

type contractWire struct {
	Version int         `cbor:"version" yaml:"version"`
	Blocks  []blockWire `cbor:"blocks" yaml:"blocks"`
}

type blockWire struct {
	Kind   string      `cbor:"kind" yaml:"kind"`
	Method *int        `cbor:"method,omitempty" yaml:"method,omitempty"`
	Instrs []instrWire `cbor:"instrs" yaml:"instrs,flow"`
}

type instrWire struct {
	Op   string `cbor:"op" yaml:"op"`
	I    int    `cbor:"i,omitempty" yaml:"i,omitempty"`
	J    int    `cbor:"j,omitempty" yaml:"j,omitempty"`
	K    int    `cbor:"k,omitempty" yaml:"k,omitempty"`
	Int  string `cbor:"int,omitempty" yaml:"int,omitempty"`
	Bits string `cbor:"bits,omitempty" yaml:"bits,omitempty"`
	Body *int   `cbor:"body,omitempty" yaml:"body,omitempty"`
}

func encodeContract(c *Contract) (*contractWire, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	w := &contractWire{Version: CodecVersion, Blocks: make([]blockWire, len(c.Blocks))}
	for i, block := range c.Blocks {
		bw := blockWire{Kind: block.Kind.String(), Instrs: make([]instrWire, len(block.Instrs))}
		if block.Kind == BlockMethod {
			id := block.MethodID
			bw.Method = &id
		}
		for j, instr := range block.Instrs {
			iw := instrWire{Op: instr.Op.String(), I: instr.I, J: instr.J, K: instr.K, Bits: instr.Bits}
			if instr.Int != nil {
				iw.Int = instr.Int.String()
			}
			if instr.Op == OpPushCont {
				body := instr.Body
				iw.Body = &body
			}
			bw.Instrs[j] = iw
		}
		w.Blocks[i] = bw
	}
	return w, nil
}

func decodeContract(w *contractWire) (*Contract, error) {
	if w.Version != CodecVersion {
		return nil, errors.Errorf("unsupported contract version: %d", w.Version)
	}

	c := NewContract()
	for i, bw := range w.Blocks {
		instrs := make([]Instr, len(bw.Instrs))
		for j, iw := range bw.Instrs {
			instr, err := decodeInstr(iw)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", Location{i, j})
			}
			instrs[j] = instr
		}

		switch bw.Kind {
		case "method":
			if bw.Method == nil {
				return nil, errors.Wrapf(ErrInvalidContract, "block %d: method without id", i)
			} else if _, ok := c.Methods[*bw.Method]; ok {
				return nil, errors.Wrapf(ErrInvalidContract, "block %d: duplicate method: %d", i, *bw.Method)
			}
			c.AddMethod(*bw.Method, instrs...)
		case "lambda":
			c.AddLambda(instrs...)
		default:
			return nil, errors.Wrapf(ErrInvalidContract, "block %d: unknown kind: %q", i, bw.Kind)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeInstr(w instrWire) (Instr, error) {
	op, ok := LookupOpcode(w.Op)
	if !ok {
		return Instr{}, errors.Wrapf(ErrInvalidContract, "unknown opcode: %q", w.Op)
	}

	instr := Instr{Op: op, I: w.I, J: w.J, K: w.K, Bits: w.Bits}
	if w.Int != "" {
		v, ok := new(big.Int).SetString(w.Int, 10)
		if !ok {
			return Instr{}, errors.Wrapf(ErrInvalidContract, "invalid integer literal: %q", w.Int)
		}
		instr.Int = v
	}
	if w.Body != nil {
		instr.Body = *w.Body
	}
	return instr, nil
}

type testsWire struct {
	Version int          `cbor:"version" yaml:"version"`
	Tests   []recordWire `cbor:"tests" yaml:"tests"`
}

type recordWire struct {
	ID       string      `cbor:"id" yaml:"id"`
	Method   int         `cbor:"method" yaml:"method"`
	Status   string      `cbor:"status" yaml:"status"`
	ExitCode int         `cbor:"exit-code,omitempty" yaml:"exit-code,omitempty"`
	Rule     string      `cbor:"rule,omitempty" yaml:"rule,omitempty"`
	Loc      string      `cbor:"loc,omitempty" yaml:"loc,omitempty"`
	Inputs   []valueWire `cbor:"inputs" yaml:"inputs"`
	Outputs  []valueWire `cbor:"outputs" yaml:"outputs"`
	Gas      int64       `cbor:"gas" yaml:"gas"`
}

type valueWire struct {
	Kind    string      `cbor:"kind" yaml:"kind"`
	Int     string      `cbor:"int,omitempty" yaml:"int,omitempty"`
	Cell    *cellWire   `cbor:"cell,omitempty" yaml:"cell,omitempty"`
	DataPos int         `cbor:"data-pos,omitempty" yaml:"data-pos,omitempty"`
	RefPos  int         `cbor:"ref-pos,omitempty" yaml:"ref-pos,omitempty"`
	Elems   []valueWire `cbor:"elems,omitempty" yaml:"elems,omitempty"`
	Block   int         `cbor:"block,omitempty" yaml:"block,omitempty"`
}

type cellWire struct {
	Data  string         `cbor:"data" yaml:"data"`
	Refs  []*cellWire    `cbor:"refs,omitempty" yaml:"refs,omitempty"`
	Types []typeLoadWire `cbor:"types,omitempty" yaml:"types,omitempty"`
}

type typeLoadWire struct {
	Kind   string `cbor:"kind" yaml:"kind"`
	Bits   int    `cbor:"bits" yaml:"bits"`
	Offset int    `cbor:"offset" yaml:"offset"`
}

func encodeTests(recs []*TestRecord) *testsWire {
	w := &testsWire{Version: CodecVersion, Tests: make([]recordWire, len(recs))}
	for i, rec := range recs {
		rw := recordWire{
			ID:      rec.ID.String(),
			Method:  rec.MethodID,
			Status:  string(rec.Status),
			Inputs:  encodeValues(rec.Inputs),
			Outputs: encodeValues(rec.Outputs),
			Gas:     rec.GasUsed,
		}
		if rec.Failed() {
			rw.ExitCode, rw.Rule, rw.Loc = int(rec.ExitCode), rec.Rule, rec.Loc.String()
		}
		w.Tests[i] = rw
	}
	return w
}

func encodeValues(a []TestValue) []valueWire {
	other := make([]valueWire, len(a))
	for i, v := range a {
		other[i] = encodeValue(v)
	}
	return other
}

func encodeValue(v TestValue) valueWire {
	w := valueWire{Kind: v.Kind().String()}
	switch v := v.(type) {
	case TestInt:
		w.Int = v.Value.String()
	case *TestDataCell:
		w.Cell = encodeCell(v)
	case *TestSlice:
		w.Cell, w.DataPos, w.RefPos = encodeCell(v.Cell), v.DataPos, v.RefPos
	case *TestBuilder:
		w.Cell = encodeCell(&TestDataCell{Data: v.Data, Refs: v.Refs})
	case *TestTuple:
		w.Elems = encodeValues(v.Elems)
	case TestContinuation:
		w.Block = v.Block
	}
	return w
}

func encodeCell(c *TestDataCell) *cellWire {
	w := &cellWire{Data: c.Data}
	for _, ref := range c.Refs {
		w.Refs = append(w.Refs, encodeCell(ref))
	}
	for _, t := range c.KnownTypes {
		w.Types = append(w.Types, typeLoadWire{Kind: string(t.Kind), Bits: t.Bits, Offset: t.Offset})
	}
	return w
}

func decodeTests(w *testsWire) ([]*TestRecord, error) {
	if w.Version != CodecVersion {
		return nil, errors.Errorf("unsupported test version: %d", w.Version)
	}

	recs := make([]*TestRecord, len(w.Tests))
	for i, rw := range w.Tests {
		id, err := uuid.Parse(rw.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "test %d", i)
		}

		rec := &TestRecord{
			ID:       id,
			MethodID: rw.Method,
			Status:   ExecutionStatus(rw.Status),
			ExitCode: ExitCode(rw.ExitCode),
			Rule:     rw.Rule,
			GasUsed:  rw.Gas,
		}
		if rw.Loc != "" {
			if rec.Loc, err = ParseLocation(rw.Loc); err != nil {
				return nil, errors.Wrapf(err, "test %d", i)
			}
		}
		if rec.Inputs, err = decodeValues(rw.Inputs); err != nil {
			return nil, errors.Wrapf(err, "test %d: inputs", i)
		}
		if rec.Outputs, err = decodeValues(rw.Outputs); err != nil {
			return nil, errors.Wrapf(err, "test %d: outputs", i)
		}
		recs[i] = rec
	}
	return recs, nil
}

func decodeValues(a []valueWire) ([]TestValue, error) {
	other := make([]TestValue, len(a))
	for i, w := range a {
		v, err := decodeValue(w)
		if err != nil {
			return nil, err
		}
		other[i] = v
	}
	return other, nil
}

func decodeValue(w valueWire) (TestValue, error) {
	switch w.Kind {
	case KindInt.String():
		v, ok := new(big.Int).SetString(w.Int, 10)
		if !ok {
			return nil, errors.Errorf("invalid integer: %q", w.Int)
		}
		return TestInt{Value: v}, nil
	case KindCell.String():
		return decodeCell(w.Cell)
	case KindSlice.String():
		cell, err := decodeCell(w.Cell)
		if err != nil {
			return nil, err
		}
		return &TestSlice{Cell: cell, DataPos: w.DataPos, RefPos: w.RefPos}, nil
	case KindBuilder.String():
		cell, err := decodeCell(w.Cell)
		if err != nil {
			return nil, err
		}
		return &TestBuilder{Data: cell.Data, Refs: cell.Refs}, nil
	case KindTuple.String():
		elems, err := decodeValues(w.Elems)
		if err != nil {
			return nil, err
		}
		return &TestTuple{Elems: elems}, nil
	case KindCont.String():
		return TestContinuation{Block: w.Block}, nil
	case KindNull.String():
		return TestNull{}, nil
	default:
		return nil, errors.Errorf("unknown value kind: %q", w.Kind)
	}
}

func decodeCell(w *cellWire) (*TestDataCell, error) {
	if w == nil {
		return nil, errors.New("missing cell")
	} else if err := validateBits(w.Data); err != nil {
		return nil, err
	} else if len(w.Refs) > MaxRefs {
		return nil, errors.Errorf("too many references: %d", len(w.Refs))
	}

	c := &TestDataCell{Data: w.Data}
	for _, ref := range w.Refs {
		other, err := decodeCell(ref)
		if err != nil {
			return nil, err
		}
		c.Refs = append(c.Refs, other)
	}
	for _, t := range w.Types {
		c.KnownTypes = append(c.KnownTypes, TestTypeLoad{Kind: TypeKind(t.Kind), Bits: t.Bits, Offset: t.Offset})
	}
	return c, nil
}
