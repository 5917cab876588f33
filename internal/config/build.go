package config

import (
	"fmt"
	"log/slog"

	"github.com/postalsys/latchkey/internal/cipher"
	"github.com/postalsys/latchkey/internal/mac"
	"github.com/postalsys/latchkey/internal/nonce"
	"github.com/postalsys/latchkey/internal/secure"
)

// BuildManager assembles a crypto manager from the configured
// ciphers. Every context gets its own nonce generator, verifier and
// bootstrap-keyed MAC; a server calls this once per connection.
func (c *Config) BuildManager(log *slog.Logger) (*secure.Manager, error) {
	manager := secure.NewManager(log)

	if c.Ciphers.RC4 != nil {
		keySize, err := c.symmetricKeySize(c.Ciphers.RC4)
		if err != nil {
			return nil, fmt.Errorf("rc4: %w", err)
		}
		ctx, err := c.symmetricContext(cipher.NewRC4(keySize))
		if err != nil {
			return nil, err
		}
		manager.AddSymmetricContext(ctx)
	}

	if c.Ciphers.TripleDES != nil && c.Ciphers.TripleDES.Enabled {
		ctx, err := c.symmetricContext(cipher.NewTripleDES())
		if err != nil {
			return nil, err
		}
		manager.AddSymmetricContext(ctx)
	}

	if c.Ciphers.RSA != nil {
		rsa, err := c.loadPKC(c.Ciphers.RSA, log, func(keySize int) cipher.PublicKey {
			return cipher.NewRSA(keySize)
		})
		if err != nil {
			return nil, fmt.Errorf("rsa: %w", err)
		}
		if err := c.addPKC(manager, rsa); err != nil {
			return nil, err
		}
	}

	if c.Ciphers.SSRSA != nil {
		ssrsa, err := c.loadPKC(c.Ciphers.SSRSA, log, func(keySize int) cipher.PublicKey {
			return cipher.NewSSRSA(keySize)
		})
		if err != nil {
			return nil, fmt.Errorf("ssrsa: %w", err)
		}
		if err := c.addPKC(manager, ssrsa); err != nil {
			return nil, err
		}
	}

	if c.Ciphers.GoldwasserMicali != nil {
		gm, err := c.loadPKC(c.Ciphers.GoldwasserMicali, log, func(keySize int) cipher.PublicKey {
			return cipher.NewGoldwasserMicali(keySize)
		})
		if err != nil {
			return nil, fmt.Errorf("goldwasser_micali: %w", err)
		}
		if err := c.addPKC(manager, gm); err != nil {
			return nil, err
		}
	}

	if c.Ciphers.BlumGoldwasser != nil && c.Ciphers.BlumGoldwasser.Enabled {
		// Key generation is quick for this one, so it happens on the
		// fly rather than from a record.
		bg := cipher.NewBlumGoldwasser(c.Ciphers.BlumGoldwasser.PrimeBound)
		if err := bg.GenKeyPair(); err != nil {
			return nil, fmt.Errorf("blum_goldwasser: %w", err)
		}
		if err := c.addPKC(manager, bg); err != nil {
			return nil, err
		}
	}

	return manager, nil
}

// symmetricKeySize resolves a symmetric cipher's key width from its
// inline config or key record.
func (c *Config) symmetricKeySize(sc *SymmetricConfig) (int, error) {
	if sc.KeyFile == "" {
		return sc.KeySize, nil
	}
	record, err := LoadKeyRecord(sc.KeyFile)
	if err != nil {
		return 0, err
	}
	return record.KeySize, nil
}

// loadPKC builds a public-key cryptosystem from its key record, or
// generates a fresh pair when no record is configured.
func (c *Config) loadPKC(pc *PKCConfig, log *slog.Logger, build func(keySize int) cipher.PublicKey) (cipher.PublicKey, error) {
	if pc.KeyFile == "" {
		pkc := build(pc.KeySize)
		log.Info("generating key pair, this can take a while", "key_size", pc.KeySize)
		if err := pkc.GenKeyPair(); err != nil {
			return nil, err
		}
		return pkc, nil
	}

	record, err := LoadKeyRecord(pc.KeyFile)
	if err != nil {
		return nil, err
	}
	pkc := build(record.KeySize)
	if err := pkc.SetKeyPair(record.PubKey, record.PrivKey); err != nil {
		return nil, err
	}
	return pkc, nil
}

// symmetricContext wraps a symmetric cipher in a fresh secure context.
func (c *Config) symmetricContext(algorithm cipher.Symmetric) (*secure.SymmetricContext, error) {
	gen, ver, m, err := c.envelopeParts()
	if err != nil {
		return nil, err
	}
	return secure.NewSymmetricContext(algorithm, gen, ver, m), nil
}

// addPKC wraps a cryptosystem in a public/private context pair and
// registers it.
func (c *Config) addPKC(manager *secure.Manager, pkc cipher.PublicKey) error {
	pubGen, pubVer, pubMac, err := c.envelopeParts()
	if err != nil {
		return err
	}
	privGen, privVer, privMac, err := c.envelopeParts()
	if err != nil {
		return err
	}

	pub := secure.NewPublicKeyContext(pkc, pubGen, pubVer, pubMac)
	priv := secure.NewPrivateKeyContext(pkc, privGen, privVer, privMac)
	return manager.AddPKCContexts(pub, priv)
}

// envelopeParts builds a fresh nonce generator, verifier and
// bootstrap-keyed MAC.
func (c *Config) envelopeParts() (nonce.Generator, nonce.Verifier, mac.Mac, error) {
	gen, err := nonce.NewSequentialGenerator(c.NonceBits)
	if err != nil {
		return nil, nil, nil, err
	}
	ver, err := nonce.NewSequentialVerifier(c.NonceBits)
	if err != nil {
		return nil, nil, nil, err
	}
	return gen, ver, mac.NewHMAC([]byte(DefaultMACKey)), nil
}
