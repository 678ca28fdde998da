// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/io"
	"github.com/0xsoniclabs/statetrees/database/mpf/proof"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
	"github.com/urfave/cli/v2"
)

var (
	formatFlag = cli.StringFlag{
		Name:  "format",
		Usage: "output format of the proof, one of hex, json, aiken, plutus, plutus-json",
		Value: "hex",
	}
	rootFlag = cli.StringFlag{
		Name:     "root",
		Usage:    "hex encoded root hash the proof is checked against, empty for the empty trie",
		Required: true,
	}
	keyFlag = cli.StringFlag{
		Name:     "key",
		Usage:    "key covered by the proof",
		Required: true,
	}
	valueFlag = cli.StringFlag{
		Name:  "value",
		Usage: "value of the key, the proof is checked for the absence of the key if not set",
	}
	proofFlag = cli.StringFlag{
		Name:     "proof",
		Usage:    "hex encoded wire proof",
		Required: true,
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "number of concurrent proof verifications",
		Value: 8,
	}
)

var Prove = cli.Command{
	Action:    prove,
	Name:      "prove",
	Usage:     "prints the proof of the presence or absence of a key",
	ArgsUsage: "<db directory> <key>",
	Flags:     withStoreFlags(&hexFlag, &versionFlag, &formatFlag),
}

var Verify = cli.Command{
	Action: verify,
	Name:   "verify",
	Usage:  "checks a wire proof against a root hash",
	Flags:  []cli.Flag{&hashFlag, &hexFlag, &rootFlag, &keyFlag, &valueFlag, &proofFlag},
}

var VerifyAll = cli.Command{
	Action:    verifyAll,
	Name:      "verify-all",
	Usage:     "creates and checks proofs for all entries listed in a file, one tab separated key and value per line",
	ArgsUsage: "<db directory> <entries file>",
	Flags:     withStoreFlags(&versionFlag, &workersFlag),
}

func prove(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected a directory and a key")
	}
	key, err := parseBytes(context, context.Args().Get(1))
	if err != nil {
		return err
	}
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	tr, err := selectTrie(context, trees, config)
	if err != nil {
		return err
	}
	p, err := tr.Proof(key)
	if err != nil {
		return err
	}
	res, err := formatProof(p, context.String(formatFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintln(context.App.Writer, res)
	return nil
}

func formatProof(p *proof.Proof, format string) (string, error) {
	switch format {
	case "hex":
		wire, err := proof.Encode(p)
		return hex.EncodeToString(wire), err
	case "json":
		data, err := proof.ToJSON(p)
		return string(data), err
	case "aiken":
		return proof.ToAiken(p), nil
	case "plutus", "plutus-json":
		data, err := proof.ToPlutusData(p)
		if err != nil {
			return "", err
		}
		if format == "plutus-json" {
			res, err := proof.PlutusJSON(data)
			return string(res), err
		}
		res, err := data.MarshalCBOR()
		return hex.EncodeToString(res), err
	}
	return "", fmt.Errorf("unknown proof format %q", format)
}

func verify(context *cli.Context) error {
	config, found := trie.GetConfigByName(context.String(hashFlag.Name))
	if !found {
		return fmt.Errorf("unknown hash configuration %q, supported: %v", context.String(hashFlag.Name), configurationNames())
	}
	root, err := parseHex(context.String(rootFlag.Name))
	if err != nil {
		return err
	}
	wire, err := parseHex(context.String(proofFlag.Name))
	if err != nil {
		return err
	}
	key, err := parseBytes(context, context.String(keyFlag.Name))
	if err != nil {
		return err
	}
	var value []byte
	including := context.IsSet(valueFlag.Name)
	if including {
		if value, err = parseBytes(context, context.String(valueFlag.Name)); err != nil {
			return err
		}
	}

	ok, err := proof.VerifyWire(root, key, value, including, wire, config.Hash, config.Scheme)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("proof is invalid")
	}
	fmt.Fprintln(context.App.Writer, "proof is valid")
	return nil
}

func verifyAll(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected a directory and an entries file")
	}
	file, err := os.Open(context.Args().Get(1))
	if err != nil {
		return err
	}
	defer file.Close()
	entries, err := io.ReadEntries(file)
	if err != nil {
		return err
	}

	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	tr, err := selectTrie(context, trees, config)
	if err != nil {
		return err
	}
	ctx := interrupt.CancelOnInterrupt(context.Context)
	report, err := io.VerifyAll(ctx, io.NewLogTo(context.App.Writer), tr, entries, context.Int(workersFlag.Name))
	if err != nil {
		return err
	}
	for _, entry := range report.Failed {
		fmt.Fprintf(context.App.Writer, "failed: %q\n", entry.Key)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d proofs are invalid", len(report.Failed), len(entries))
	}
	return nil
}
