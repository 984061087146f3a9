// Package ll implements the Access Address rules of the BLE Link Layer
// (Core Specification Vol 6, Part B, Section 2.1.2).
package ll

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// AccessAddress identifies a connection or periodic advertising train on the
// non-advertising physical channels.
type AccessAddress uint32

// AdvertisingAccessAddress is used by all advertising physical channel packets.
const AdvertisingAccessAddress AccessAddress = 0x8E89BED6

func (aa AccessAddress) String() string {
	return fmt.Sprintf("0x%08X", uint32(aa))
}

// Bytes returns the address in over-the-air octet order.
func (aa AccessAddress) Bytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(aa))
	return buf
}

// ActiveAddressSet reports the access addresses in use by this device's
// connections and enabled periodic advertising trains.
type ActiveAddressSet interface {
	Contains(AccessAddress) bool
}

type Rule uint8

const (
	RuleNone Rule = iota
	// also covers periodic advertising trains, which are members of the set.
	RuleInUse
	RuleConsecutiveBits
	RuleAdvertising
	RuleAdvertisingOneBit
	RuleEqualOctets
	RuleTransitions
	RuleMSBTransitions
	RuleCodedLSBOnes
	RuleCodedLSBTransitions
)

var ruleNames = map[Rule]string{
	RuleNone:                "none",
	RuleInUse:               "in use",
	RuleConsecutiveBits:     "more than 6 consecutive equal bits",
	RuleAdvertising:         "advertising access address",
	RuleAdvertisingOneBit:   "one bit from advertising access address",
	RuleEqualOctets:         "all octets equal",
	RuleTransitions:         "more than 24 transitions",
	RuleMSBTransitions:      "fewer than 2 transitions in the 6 most significant bits",
	RuleCodedLSBOnes:        "fewer than 3 ones in the least significant octet",
	RuleCodedLSBTransitions: "more than 11 transitions in the 16 least significant bits",
}

func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Rule(%d)", uint8(r))
}

const (
	maxConsecutiveBits     = 6
	maxTransitions         = 24
	minMSBTransitions      = 2
	minCodedLSBOnes        = 3
	maxCodedLSBTransitions = 11
)

// Check returns the lowest numbered rule aa violates, or RuleNone. Rules 9 and
// 10 are only applied when codedPHY is set. A nil active set is empty.
func Check(aa AccessAddress, active ActiveAddressSet, codedPHY bool) Rule {
	v := uint32(aa)
	if active != nil && active.Contains(aa) {
		return RuleInUse
	}
	if LongestRun(v) > maxConsecutiveBits {
		return RuleConsecutiveBits
	}
	if aa == AdvertisingAccessAddress {
		return RuleAdvertising
	}
	if bits.OnesCount32(v^uint32(AdvertisingAccessAddress)) == 1 {
		return RuleAdvertisingOneBit
	}
	if v == uint32(uint8(v))*0x01010101 {
		return RuleEqualOctets
	}
	if TransitionCount(v, 32) > maxTransitions {
		return RuleTransitions
	}
	if TransitionCount(v>>26, 6) < minMSBTransitions {
		return RuleMSBTransitions
	}
	if !codedPHY {
		return RuleNone
	}
	if bits.OnesCount8(uint8(v)) < minCodedLSBOnes {
		return RuleCodedLSBOnes
	}
	if TransitionCount(v, 16) > maxCodedLSBTransitions {
		return RuleCodedLSBTransitions
	}
	return RuleNone
}

// IsValid reports whether aa may be used for a new connection or periodic
// advertising train.
func IsValid(aa AccessAddress, active ActiveAddressSet, codedPHY bool) bool {
	return Check(aa, active, codedPHY) == RuleNone
}
