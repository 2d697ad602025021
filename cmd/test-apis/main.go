package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrcasterbaldman/caster-bot/internal/chain"
	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/mrcasterbaldman/caster-bot/internal/textgen"
)

func main() {
	fmt.Println("🔍 Caster Bot - API Connectivity Test")
	fmt.Println("=====================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("\n📡 Testing collaborators...")
	fmt.Println(strings.Repeat("-", 40))

	feed := neynar.NewClient(cfg.NeynarAPIKey, cfg.SignerUUID, cfg.NeynarBaseURL)
	check("Neynar notifications", func() (string, error) {
		mentions, err := feed.ListMentions(ctx, cfg.FID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d mentions", len(mentions)), nil
	})
	check("Neynar own casts", func() (string, error) {
		page, err := feed.ListPosts(ctx, cfg.FID, "", 10)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d casts", len(page.Posts)), nil
	})

	text := textgen.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	check("OpenAI", func() (string, error) {
		reply := text.Generate(ctx, "Say hello to the Farcaster community in one sentence.")
		if reply == textgen.FallbackText {
			return "", fmt.Errorf("generation failed")
		}
		return fmt.Sprintf("%q", reply), nil
	})

	rpc, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		fmt.Printf("🔸 Testing RPC... ❌ ERROR: %v\n", err)
		return
	}
	defer rpc.Close()

	ledger, err := chain.NewERC20Ledger(rpc, cfg.TokenAddress, cfg.AgentPrivateKey)
	if err != nil {
		fmt.Printf("🔸 Testing token ledger... ❌ ERROR: %v\n", err)
		return
	}
	check("Token ledger", func() (string, error) {
		balance, err := ledger.BalanceOf(ctx, ledger.Custodian())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s holds %s %s", ledger.Custodian(), chain.FormatTokens(balance), cfg.TokenSymbol), nil
	})
	check("NFT gate", func() (string, error) {
		gate, err := chain.NewNFTGate(rpc, cfg.NFTAddress)
		if err != nil {
			return "", err
		}
		holds, err := gate.HoldsAsset(ctx, ledger.Custodian())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("agent holds NFT: %t", holds), nil
	})

	fmt.Println("\n✅ API connectivity test completed!")
}

func check(name string, probe func() (string, error)) {
	fmt.Printf("🔸 Testing %s... ", name)

	detail, err := probe()
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%s)\n", detail)
}
