package engine

import (
	"strconv"
	"strings"

	"rpio.dev/x/rpio/host/distro"
)

// Revision is the four-way classification recovered from the original RPIO
// C sources' get_cpuinfo_revision (SUPPLEMENTED FEATURES): the distilled
// spec only names rev1/rev2, but a real revision detector must also
// distinguish "no /proc/cpuinfo" from "not a Broadcom board" so callers get
// a meaningful error instead of a guessed revision.
type Revision int

const (
	// RevisionAbsent means /proc/cpuinfo could not be read at all.
	RevisionAbsent Revision = -1
	// RevisionNotPi means /proc/cpuinfo was read but reports no BCM2708
	// Hardware line.
	RevisionNotPi Revision = 0
	Revision1     Revision = 1
	Revision2     Revision = 2
)

// DetectRevision classifies the running board by reading /proc/cpuinfo's
// Hardware and Revision fields, per §6's kernel surfaces and the
// SUPPLEMENTED FEATURES four-way classification.
func DetectRevision() (Revision, error) {
	info := distro.CPUInfo()
	if len(info) == 0 {
		return RevisionAbsent, Newf("revision", DeviceAccess, "/proc/cpuinfo is not readable")
	}
	hardware, ok := info["Hardware"]
	if !ok || !strings.HasPrefix(hardware, "BCM") {
		return RevisionNotPi, nil
	}
	rev := strings.TrimSpace(info["Revision"])
	rev = strings.TrimPrefix(rev, "1000") // over-voltage variant prefix
	switch rev {
	case "0002", "0003":
		return Revision1, nil
	default:
		if _, err := strconv.ParseUint(rev, 16, 32); err != nil {
			return RevisionNotPi, Newf("revision", DeviceAccess, "unparsable revision %q", rev)
		}
		return Revision2, nil
	}
}

// boardToBCMRev1/boardToBCMRev2 are the P1 header's 26 pin positions mapped
// to BCM line numbers; -1 marks a power/ground/no-connect position. Pins 27+
// (the P5 header some rev2 boards add) are out of scope, matching the
// distilled spec's silence on them.
var boardToBCMRev1 = [27]int{
	-1, -1, -1, 0, -1, 1, -1, 4, 14, -1,
	15, 17, 18, 21, -1, 22, 23, -1, 24, 10,
	-1, 9, 25, 11, 8, -1, 7,
}

var boardToBCMRev2 = [27]int{
	-1, -1, -1, 2, -1, 3, -1, 4, 14, -1,
	15, 17, 18, 27, -1, 22, 23, -1, 24, 10,
	-1, 9, 25, 11, 8, -1, 7,
}

func boardTable(rev Revision) [27]int {
	if rev == Revision1 {
		return boardToBCMRev1
	}
	return boardToBCMRev2
}

// BoardToBCM translates a P1 header pin position to a BCM line number for
// the given revision. Positions outside 1..26, or marked invalid, return an
// error.
func BoardToBCM(rev Revision, pin int) (int, error) {
	if pin < 1 || pin > 26 {
		return 0, Newf("translate", ChannelRange, "board pin %d out of range", pin)
	}
	bcm := boardTable(rev)[pin]
	if bcm < 0 {
		return 0, Newf("translate", ChannelRange, "board pin %d has no BCM line", pin)
	}
	return bcm, nil
}

// BCMToBoard is the inverse of BoardToBCM, used by the numbering round-trip
// property (§8 property 3).
func BCMToBoard(rev Revision, bcm int) (int, error) {
	table := boardTable(rev)
	for pin, v := range table {
		if v == bcm {
			return pin, nil
		}
	}
	return 0, Newf("translate", ChannelRange, "BCM line %d has no board pin", bcm)
}
