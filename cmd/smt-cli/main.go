// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/cairn-labs/smt/hashutil"
	"github.com/cairn-labs/smt/store"
	"github.com/cairn-labs/smt/tree"
)

func main() {

	var (
		flagData      string
		flagLog       string
		flagNumLevels uint32
	)

	pflag.StringVarP(&flagData, "data", "d", "./nodes", "database directory for tree nodes")
	pflag.StringVarP(&flagLog, "log", "l", "info", "log output level")
	pflag.Uint32VarP(&flagNumLevels, "levels", "n", 140, "number of levels in the tree")

	pflag.Parse()

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLog)
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse log level")
	}
	log = log.Level(level)

	args := pflag.Args()
	if len(args) == 0 {
		log.Fatal().Msg("missing subcommand: add, lookup, prove or verify")
	}

	db, err := store.NewPersistent(log, store.WithStoragePath(flagData))
	if err != nil {
		log.Fatal().Err(err).Msg("could not open node storage")
	}
	defer db.Close()

	engine, err := tree.New(log, db, flagNumLevels)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize tree engine")
	}

	switch args[0] {

	case "add":
		if len(args) != 2 {
			log.Fatal().Msg("usage: smt-cli add <hex-value>")
		}
		value, err := hex.DecodeString(args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode value")
		}
		leaf := tree.Leaf{Bytes: value, IndexLength: uint32(len(value))}
		err = engine.Add(leaf)
		if err != nil {
			log.Fatal().Err(err).Msg("could not add leaf")
		}
		fmt.Println(hex.EncodeToString(engine.Root()[:]))

	case "lookup":
		if len(args) != 2 {
			log.Fatal().Msg("usage: smt-cli lookup <hex-position>")
		}
		hi, err := decodeHash(args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode position hash")
		}
		value := engine.ValueAt(hi)
		fmt.Println(hex.EncodeToString(value))

	case "prove":
		if len(args) != 2 {
			log.Fatal().Msg("usage: smt-cli prove <hex-position>")
		}
		hi, err := decodeHash(args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode position hash")
		}
		proof := engine.GenerateProof(hi)
		fmt.Println(hex.EncodeToString(proof))

	case "verify":
		if len(args) != 4 {
			log.Fatal().Msg("usage: smt-cli verify <hex-position> <hex-content-hash> <hex-proof>")
		}
		hi, err := decodeHash(args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode position hash")
		}
		ht, err := decodeHash(args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode content hash")
		}
		proof, err := hex.DecodeString(args[3])
		if err != nil {
			log.Fatal().Err(err).Msg("could not decode proof")
		}
		ok := tree.VerifyProof(engine.Root(), proof, hi, ht, flagNumLevels, hashutil.Keccak256)
		fmt.Println(ok)

	default:
		log.Fatal().Str("subcommand", args[0]).Msg("unknown subcommand")
	}
}

func decodeHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
