// Command rollctl drives a single concurrent Merkle roll backed by a file
// on disk, for local experimentation and smoke-testing of the dispatch
// package outside of any particular host environment.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/jarry-xiao/gummyroll/dispatch"
	"github.com/jarry-xiao/gummyroll/events"
	"github.com/jarry-xiao/gummyroll/hostbuf"
	"github.com/jarry-xiao/gummyroll/merkle"
	"github.com/jarry-xiao/gummyroll/metrics"
)

var (
	path       = flag.String("path", "roll.bin", "backing file for the roll's header, body, and canopy")
	depth      = flag.Int("depth", 14, "tree depth (must be one of dispatch's supported depths)")
	bufferSize = flag.Uint64("buffer_size", 64, "changelog ring buffer capacity (must be one of dispatch's supported sizes for depth)")
	canopyM    = flag.Int("canopy_nodes", 0, "number of packed canopy nodes (0 disables the canopy)")

	cmd  = flag.String("cmd", "", "one of: init, append, verify")
	leaf = flag.String("leaf", "", "hex-encoded 32-byte leaf content, for -cmd=append and -cmd=verify")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("gummyroll/rollctl: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	l := hostbuf.Layout{
		HeaderSize: dispatch.HeaderSize,
		RollSize:   dispatch.RollBodySize(*depth, *bufferSize),
		CanopySize: *canopyM * 32,
	}
	regions, closeFn, err := hostbuf.Open(*path, l)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *path, err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			glog.Warningf("gummyroll/rollctl: closing %s: %v", *path, err)
		}
	}()

	hasher := merkle.Keccak256Hasher{}
	sink := events.GlogSink{}
	mf := metrics.Inert{}

	if h, err := dispatch.DecodeHeader(regions.Header); err != nil || dispatch.Validate(int(h.MaxDepth), uint64(h.MaxBufferSize)) != nil {
		if err := (dispatch.Header{MaxDepth: uint32(*depth), MaxBufferSize: uint32(*bufferSize)}).Encode(regions.Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	sess, err := dispatch.Open(regions.Header, regions.Roll, regions.Canopy, hasher, sink, mf)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	switch *cmd {
	case "init":
		root, err := sess.InitializeEmpty()
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		fmt.Printf("root=%s\n", root)
		return nil

	case "append":
		n, err := decodeLeaf(*leaf)
		if err != nil {
			return err
		}
		root, err := sess.Append(n)
		if err != nil {
			return fmt.Errorf("appending: %w", err)
		}
		fmt.Printf("root=%s rightmost_index=%d\n", root, sess.Roll.RightmostIndex()-1)
		return nil

	case "verify":
		n, err := decodeLeaf(*leaf)
		if err != nil {
			return err
		}
		rp := sess.Roll.RightmostProof()
		if err := sess.VerifyLeaf(sess.Roll.CurrentRoot(), n, rp.Proof, rp.Index-1); err != nil {
			return fmt.Errorf("verifying: %w", err)
		}
		fmt.Println("ok")
		return nil

	default:
		return fmt.Errorf("unknown -cmd %q (want one of: init, append, verify)", *cmd)
	}
}

func decodeLeaf(s string) (merkle.Node, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return merkle.Node{}, fmt.Errorf("decoding -leaf: %w", err)
	}
	var n merkle.Node
	if len(raw) != len(n) {
		return merkle.Node{}, fmt.Errorf("-leaf must be exactly %d bytes, got %d", len(n), len(raw))
	}
	copy(n[:], raw)
	return n, nil
}
