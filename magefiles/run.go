//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Poses the avatar named by $AVATAR with IK and writes pose.json. $EFFECTOR
// and $TARGET default to the right hand reaching forward.
func (Run) Pose() error {
	avatar := os.Getenv("AVATAR")
	if avatar == "" {
		return fmt.Errorf("set AVATAR to a .vrm file")
	}
	effector := getenv("EFFECTOR", "rightHand")
	target := getenv("TARGET", "-0.3,1.2,0.4")
	fmt.Println("Run pose...")
	_, err := executeCmd("go", withArgs("run", ".", "--avatar", avatar, "--effector", effector, "--target", target, "--pose-out", "pose.json"), withStream())
	return err
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
