package tvmsym

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// BlockKind distinguishes method entry points from inline lambdas.
type BlockKind int

const (
	BlockMethod = BlockKind(iota)
	BlockLambda
)

// String returns the name of the kind.
func (k BlockKind) String() string {
	switch k {
	case BlockMethod:
		return "method"
	case BlockLambda:
		return "lambda"
	default:
		return fmt.Sprintf("BlockKind<%d>", int(k))
	}
}

// CodeBlock is a sequence of instructions. Every block ends with an implicit
// return that is not stored in Instrs.
type CodeBlock struct {
	Kind     BlockKind
	MethodID int // method blocks only
	Instrs   []Instr
}

// Location identifies an instruction by its code block and index. An index
// equal to the block length addresses the implicit return.
type Location struct {
	Block int
	Index int
}

// String returns the location as "block:index".
func (loc Location) String() string {
	return fmt.Sprintf("%d:%d", loc.Block, loc.Index)
}

// Next returns the location of the successor instruction.
func (loc Location) Next() Location {
	return Location{Block: loc.Block, Index: loc.Index + 1}
}

// ParseLocation parses a location in "block:index" form.
func ParseLocation(s string) (Location, error) {
	var loc Location
	if _, err := fmt.Sscanf(s, "%d:%d", &loc.Block, &loc.Index); err != nil {
		return Location{}, errors.Wrapf(err, "invalid location %q", s)
	}
	return loc, nil
}

// Contract holds all code blocks of a compiled contract. Blocks are addressed
// by index; methods are additionally indexed by their numeric id.
type Contract struct {
	Blocks  []*CodeBlock
	Methods map[int]int // method id to block index
}

// NewContract returns a new, empty contract.
func NewContract() *Contract {
	return &Contract{Methods: make(map[int]int)}
}

// AddMethod adds a method block and returns its block index.
func (c *Contract) AddMethod(id int, instrs ...Instr) int {
	_, exists := c.Methods[id]
	assert(!exists, "duplicate method: id=%d", id)
	c.Blocks = append(c.Blocks, &CodeBlock{Kind: BlockMethod, MethodID: id, Instrs: instrs})
	c.Methods[id] = len(c.Blocks) - 1
	return len(c.Blocks) - 1
}

// AddLambda adds an anonymous block and returns its block index.
func (c *Contract) AddLambda(instrs ...Instr) int {
	c.Blocks = append(c.Blocks, &CodeBlock{Kind: BlockLambda, Instrs: instrs})
	return len(c.Blocks) - 1
}

// Method returns the block index of the method with the given id.
func (c *Contract) Method(id int) (int, error) {
	block, ok := c.Methods[id]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownMethod, "method id %d", id)
	}
	return block, nil
}

// MethodIDs returns the ids of all methods, sorted.
func (c *Contract) MethodIDs() []int {
	a := make([]int, 0, len(c.Methods))
	for id := range c.Methods {
		a = append(a, id)
	}
	sort.Ints(a)
	return a
}

// Instr returns the instruction at loc. The location just past the last
// instruction of a block yields an implicit RET.
func (c *Contract) Instr(loc Location) (Instr, error) {
	if loc.Block < 0 || loc.Block >= len(c.Blocks) {
		return Instr{}, errors.Wrapf(ErrInvalidContract, "block out of range: %s", loc)
	}
	block := c.Blocks[loc.Block]
	if loc.Index == len(block.Instrs) {
		return Instr{Op: OpRet}, nil
	} else if loc.Index < 0 || loc.Index > len(block.Instrs) {
		return Instr{}, errors.Wrapf(ErrInvalidContract, "instruction out of range: %s", loc)
	}
	return block.Instrs[loc.Index], nil
}

// IsImplicitRet returns true if loc addresses the implicit return of its block.
func (c *Contract) IsImplicitRet(loc Location) bool {
	return loc.Block >= 0 && loc.Block < len(c.Blocks) && loc.Index == len(c.Blocks[loc.Block].Instrs)
}

// Validate checks that all block references in the contract resolve.
func (c *Contract) Validate() error {
	for id, block := range c.Methods {
		if block < 0 || block >= len(c.Blocks) {
			return errors.Wrapf(ErrInvalidContract, "method %d: block out of range: %d", id, block)
		} else if b := c.Blocks[block]; b.Kind != BlockMethod || b.MethodID != id {
			return errors.Wrapf(ErrInvalidContract, "method %d: block %d is not its method block", id, block)
		}
	}

	for i, block := range c.Blocks {
		for j, instr := range block.Instrs {
			if instr.Op <= OpInvalid || instr.Op >= opcodeEnd {
				return errors.Wrapf(ErrInvalidContract, "%s: invalid opcode %d", Location{i, j}, int(instr.Op))
			}
			switch instr.Op {
			case OpPushCont:
				if instr.Body < 0 || instr.Body >= len(c.Blocks) {
					return errors.Wrapf(ErrInvalidContract, "%s: continuation block out of range: %d", Location{i, j}, instr.Body)
				}
			case OpPushInt8, OpPushInt16, OpPushIntLong:
				if instr.Int == nil {
					return errors.Wrapf(ErrInvalidContract, "%s: %s without literal", Location{i, j}, instr.Op)
				}
			case OpPushSlice, OpPushRef, OpPushRefSlice:
				if err := validateBits(instr.Bits); err != nil {
					return errors.Wrapf(err, "%s", Location{i, j})
				}
			}
		}
	}
	return nil
}

// validateBits returns an error if s is not a bit string fitting in a cell.
func validateBits(s string) error {
	if len(s) > MaxDataBits {
		return errors.Wrapf(ErrInvalidContract, "bit string too long: %d", len(s))
	}
	for _, ch := range s {
		if ch != '0' && ch != '1' {
			return errors.Wrapf(ErrInvalidContract, "invalid bit string: %q", s)
		}
	}
	return nil
}
